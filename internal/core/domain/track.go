// Package domain contains the core entities crawlerd operates on: tracks
// discovered from the catalog provider, the jobs that drive them through the
// link/features pipeline, and the descriptors extracted along the way.
package domain

import "errors"

// ErrNotFound marks a missing row. The SQLite store does not return it: its
// lookups report a missing row as a nil result with a nil error.
var ErrNotFound = errors.New("not found")

// CatalogTrack is the normalized shape of a track as reported by the catalog
// provider, prior to being assigned an internal id.
type CatalogTrack struct {
	CatalogID   string
	ISRC        string
	Title       string
	ArtistAll   []string
	Album       string
	DurationMs  int
	ReleaseDate string
	Explicit    bool
	Popularity  int
}

// FirstArtist returns the primary artist name, or "unknown" if none is known.
func (t CatalogTrack) FirstArtist() string {
	if len(t.ArtistAll) == 0 {
		return "unknown"
	}
	return t.ArtistAll[0]
}

// Track is the persisted, internally-addressed record for a discovered track.
type Track struct {
	ID               string
	CatalogID        string
	ISRC             string
	AuthorityID      string // canonical recording id once linked
	Title            string
	ArtistAll        []string
	LinkedOK         bool
	FeaturesOK       bool
	UpdatedAtUnixSec int64
}

// FirstArtist returns the primary artist name, or "unknown" if none is known.
func (t Track) FirstArtist() string {
	if len(t.ArtistAll) == 0 {
		return "unknown"
	}
	return t.ArtistAll[0]
}
