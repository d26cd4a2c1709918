package services

import (
	"context"
	"fmt"

	"github.com/andrewbelles/ml-shuffle/internal/core/domain"
	"github.com/andrewbelles/ml-shuffle/internal/core/ports"
)

// Feeder runs catalog searches and ensures every returned track exists in
// the store, enqueuing a link job for each newly-discovered one.
type Feeder struct {
	store   ports.Store
	catalog ports.CatalogClient
	sink    ports.Sink
}

// NewFeeder builds a Feeder.
func NewFeeder(store ports.Store, catalog ports.CatalogClient, sink ports.Sink) *Feeder {
	return &Feeder{store: store, catalog: catalog, sink: sink}
}

// Search runs one keyword search and returns the matched catalog track ids,
// for the caller to batch-fetch via Ingest.
func (fd *Feeder) Search(ctx context.Context, bearer, query string, limit, offset int) ([]string, error) {
	resp, err := fd.catalog.Search(ctx, bearer, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("services: catalog search: %w", err)
	}
	items, _ := navigate(resp, "tracks", "items").([]any)
	var ids []string
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Ingest batch-fetches the given catalog ids, ensures each track exists in
// the store, and persists the raw catalog document — content-addressed by
// the catalog id, but indexed in the relational store against the internal
// track id the row was assigned, not the catalog id itself.
func (fd *Feeder) Ingest(ctx context.Context, bearer string, catalogIDs []string) (int, error) {
	if len(catalogIDs) == 0 {
		return 0, nil
	}
	resp, err := fd.catalog.BatchTracks(ctx, bearer, catalogIDs)
	if err != nil {
		return 0, fmt.Errorf("services: batch tracks: %w", err)
	}
	rawTracks, _ := resp["tracks"].([]any)

	var ensured int
	for _, raw := range rawTracks {
		m, ok := raw.(map[string]any)
		if !ok || m == nil {
			continue
		}
		ct := toCatalogTrack(m)
		trackID, err := fd.store.EnsureTrack(ctx, ct)
		if err != nil {
			continue
		}
		ensured++

		payload, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		relPath, err := fd.sink.WriteJSON("catalog.track", ct.CatalogID, payload)
		if err != nil {
			continue
		}
		_ = fd.store.IndexRawFile(ctx, domain.RawFileRecord{
			TrackID: trackID, Source: "catalog", Subtype: "track", Key: ct.CatalogID, RelPath: relPath,
		})
	}
	return ensured, nil
}

func toCatalogTrack(m map[string]any) domain.CatalogTrack {
	ct := domain.CatalogTrack{}
	ct.CatalogID, _ = m["id"].(string)
	ct.Title, _ = m["name"].(string)
	if externalIDs, ok := m["external_ids"].(map[string]any); ok {
		ct.ISRC, _ = externalIDs["isrc"].(string)
	}
	if artists, ok := m["artists"].([]any); ok {
		for _, a := range artists {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := am["name"].(string); ok && name != "" {
				ct.ArtistAll = append(ct.ArtistAll, name)
			}
		}
	}
	if album, ok := m["album"].(map[string]any); ok {
		ct.Album, _ = album["name"].(string)
		ct.ReleaseDate, _ = album["release_date"].(string)
	}
	if durationMs, ok := m["duration_ms"].(float64); ok {
		ct.DurationMs = int(durationMs)
	}
	ct.Explicit, _ = m["explicit"].(bool)
	if popularity, ok := m["popularity"].(float64); ok {
		ct.Popularity = int(popularity)
	}
	return ct
}

// navigate walks a sequence of map keys, returning nil as soon as a key is
// missing or the path runs into a non-object value.
func navigate(v any, keys ...string) any {
	cur := v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}
