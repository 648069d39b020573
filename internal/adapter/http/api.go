package http

import (
	"net/http"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/store"
)

type stateView struct {
	State            domain.LoadState `json:"state"`
	NeedsInitialLoad bool             `json:"needsInitialLoad"`
	Selected         string           `json:"selected,omitempty"`
	RecordCount      int              `json:"recordCount"`
	FetchedAt        int64            `json:"fetchedAt,omitempty"`
	Period           domain.Period    `json:"period,omitempty"`
	Severity         domain.Severity  `json:"severity,omitempty"`
	LastError        string           `json:"lastError,omitempty"`
}

type recordView struct {
	domain.SeismicRecord
	FormattedCoordinates string `json:"formattedCoordinates"`
	FormattedTime        string `json:"formattedTime"`
}

type recordsView struct {
	stateView
	Records []recordView `json:"records"`
}

func newStateView(snap store.Snapshot) stateView {
	return stateView{
		State:            snap.State,
		NeedsInitialLoad: snap.State == domain.StateIdle,
		Selected:         snap.Selected,
		RecordCount:      len(snap.Records),
		FetchedAt:        snap.FetchedAt,
		Period:           snap.Period,
		Severity:         snap.Severity,
		LastError:        snap.LastError,
	}
}

func newRecordView(r domain.SeismicRecord) recordView {
	return recordView{
		SeismicRecord:        r,
		FormattedCoordinates: domain.FormatCoordinates(r.Coordinates),
		FormattedTime:        domain.FormatOccurredAt(r.OccurredAt),
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.store.Snapshot()))
}

func (s *Server) handleRecords(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	out := recordsView{
		stateView: newStateView(snap),
		Records:   make([]recordView, len(snap.Records)),
	}
	for i, r := range snap.Records {
		out.Records[i] = newRecordView(r)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleLoad runs one load cycle and reports how it settled:
// 200 loaded, 502 failed, 409 when a cycle was already in flight.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	period, severity := s.period, s.severity
	q := r.URL.Query()
	if v := q.Get("period"); v != "" {
		p, err := domain.ParsePeriod(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		period = p
	}
	if v := q.Get("severity"); v != "" {
		sev, err := domain.ParseSeverity(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		severity = sev
	}

	ran := s.store.RequestLoad(r.Context(), period, severity)
	view := newStateView(s.store.Snapshot())

	switch {
	case !ran:
		writeJSON(w, http.StatusConflict, view)
	case view.State == domain.StateFailed:
		writeJSON(w, http.StatusBadGateway, view)
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.store.SelectRecord(id)
	s.logger.Debug("record selected", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	rec, ok := s.store.SelectedRecord()
	if !ok {
		writeError(w, http.StatusNotFound, "selected record not in current set")
		return
	}
	writeJSON(w, http.StatusOK, newRecordView(rec))
}
