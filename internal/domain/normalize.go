package domain

// Normalize flattens every feature of doc into a SeismicRecord, preserving
// order. Any feature missing id, time, or the lon/lat pair rejects the batch.
func Normalize(doc FeedDocument) ([]SeismicRecord, error) {
	records := make([]SeismicRecord, 0, len(doc.Features))
	for i, f := range doc.Features {
		rec, err := normalizeFeature(i, f)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func normalizeFeature(index int, f Feature) (SeismicRecord, error) {
	if f.ID == "" {
		return SeismicRecord{}, &MalformedRecordError{Index: index, Field: "id"}
	}
	if f.Properties.Time == nil {
		return SeismicRecord{}, &MalformedRecordError{Index: index, ID: f.ID, Field: "properties.time"}
	}
	if f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
		return SeismicRecord{}, &MalformedRecordError{Index: index, ID: f.ID, Field: "geometry.coordinates"}
	}

	p := f.Properties
	coords := f.Geometry.Coordinates
	rec := SeismicRecord{
		ID:          f.ID,
		Place:       stringOrEmpty(p.Place),
		Title:       stringOrEmpty(p.Title),
		OccurredAt:  *p.Time,
		Coordinates: [2]float64{coords[0], coords[1]},
	}
	if p.Mag != nil {
		rec.Magnitude = *p.Mag
	}
	if len(coords) > 2 {
		rec.Depth = coords[2]
	}
	if p.Tsunami != nil {
		rec.TsunamiFlag = *p.Tsunami
	}
	if p.URL != nil {
		u := *p.URL
		rec.DetailURL = &u
	}
	return rec, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
