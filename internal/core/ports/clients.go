package ports

import "context"

// CatalogClient is the Spotify-like track catalog provider.
type CatalogClient interface {
	Token(ctx context.Context) (accessToken string, expiresInSec int64, err error)
	Search(ctx context.Context, bearer, query string, limit, offset int) (map[string]any, error)
	BatchTracks(ctx context.Context, bearer string, ids []string) (map[string]any, error)
	Track(ctx context.Context, bearer, trackID string) (map[string]any, error)
	AudioFeatures(ctx context.Context, bearer, trackID string) (map[string]any, error)
	BatchAudioFeatures(ctx context.Context, bearer string, ids []string) (map[string]any, error)
}

// AuthorityClient is the MusicBrainz-like canonical recording resolver.
type AuthorityClient interface {
	LookupISRC(ctx context.Context, isrc string) (map[string]any, error)
	SearchRecording(ctx context.Context, luceneQuery string, limit, offset int) (map[string]any, error)
	LookupRecording(ctx context.Context, mbid string) (map[string]any, error)
	LookupRelease(ctx context.Context, mbid, inc string) (map[string]any, error)
}

// AcousticClient is the AcousticBrainz-like descriptor service.
type AcousticClient interface {
	Features(ctx context.Context, mbid, level string) (map[string]any, error)
}

// TagClient is the Last.fm-like social-tag service.
type TagClient interface {
	TopTagsByMBID(ctx context.Context, mbid string) (map[string]any, error)
	TopTags(ctx context.Context, artist, title string) (map[string]any, error)
}

// Sink persists a raw JSON response for a given (kind, key) pair,
// content-addressed and compressed, returning the path it was written to.
type Sink interface {
	WriteJSON(kind string, key string, payload map[string]any) (relPath string, err error)
}
