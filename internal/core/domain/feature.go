package domain

// NumFeature is a scalar feature extracted from an acoustic/tag response.
type NumFeature struct {
	Name  string
	Value float64
}

// TextFeature is a categorical feature extracted from an acoustic/tag response.
type TextFeature struct {
	Name  string
	Value string
}

// RawFileRecord indexes a content-addressed raw response persisted by the sink.
type RawFileRecord struct {
	TrackID string
	Source  string // "catalog", "acousticbrainz", "lastfm"
	Subtype string // "track", "high-level", "low-level", "toptags"
	Key     string // content-address key (catalog id or authority id)
	RelPath string
}
