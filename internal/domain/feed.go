package domain

// FeedDocument is the raw GeoJSON FeatureCollection returned by the feed.
// Only the fields the normalizer reads are typed; everything else is ignored.
type FeedDocument struct {
	Type     string       `json:"type"`
	Metadata FeedMetadata `json:"metadata"`
	BBox     []float64    `json:"bbox,omitempty"`
	Features []Feature    `json:"features"`
}

// FeedMetadata describes the generated feed.
type FeedMetadata struct {
	Generated int64  `json:"generated"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	API       string `json:"api"`
	Count     int    `json:"count"`
}

// Feature is one event in the feed. Pointer fields distinguish absent from zero.
type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Properties FeatureProperties `json:"properties"`
	Geometry   *Geometry         `json:"geometry"`
}

// FeatureProperties holds the event attributes.
type FeatureProperties struct {
	Mag     *float64 `json:"mag"`
	Place   *string  `json:"place"`
	Time    *int64   `json:"time"`
	Updated *int64   `json:"updated"`
	URL     *string  `json:"url"`
	Detail  *string  `json:"detail"`
	Tsunami *int     `json:"tsunami"`
	Title   *string  `json:"title"`
	MagType *string  `json:"magType"`
	Status  *string  `json:"status"`
}

// Geometry is a GeoJSON Point: [longitude, latitude, depth].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}
