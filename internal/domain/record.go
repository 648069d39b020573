package domain

// SeismicRecord is the flat representation of one feed event.
type SeismicRecord struct {
	ID          string     `json:"id"`
	Place       string     `json:"place"`
	Title       string     `json:"title,omitempty"`
	OccurredAt  int64      `json:"occurredAt"` // ms since epoch, UTC
	Magnitude   float64    `json:"magnitude"`
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
	Depth       float64    `json:"depth"`       // km
	TsunamiFlag int        `json:"tsunamiFlag"`
	DetailURL   *string    `json:"detailUrl"`
}

// Longitude returns the first coordinate.
func (r SeismicRecord) Longitude() float64 { return r.Coordinates[0] }

// Latitude returns the second coordinate.
func (r SeismicRecord) Latitude() float64 { return r.Coordinates[1] }

// Batch is a set of records fetched together for one selector.
type Batch struct {
	Period    Period
	Severity  Severity
	FetchedAt int64 // ms since epoch
	Records   []SeismicRecord
}
