package services

import (
	"context"
	"testing"
)

type fakeCatalog struct {
	searchResp map[string]any
	batchResp  map[string]any
	batchIDs   []string
}

func (f *fakeCatalog) Token(ctx context.Context) (string, int64, error) { return "tok", 3600, nil }
func (f *fakeCatalog) Search(ctx context.Context, bearer, query string, limit, offset int) (map[string]any, error) {
	return f.searchResp, nil
}
func (f *fakeCatalog) BatchTracks(ctx context.Context, bearer string, ids []string) (map[string]any, error) {
	f.batchIDs = ids
	return f.batchResp, nil
}
func (f *fakeCatalog) Track(ctx context.Context, bearer, trackID string) (map[string]any, error) {
	return nil, nil
}
func (f *fakeCatalog) AudioFeatures(ctx context.Context, bearer, trackID string) (map[string]any, error) {
	return nil, nil
}
func (f *fakeCatalog) BatchAudioFeatures(ctx context.Context, bearer string, ids []string) (map[string]any, error) {
	return nil, nil
}

func TestSearchExtractsIDsFromItems(t *testing.T) {
	store := newFakeStore()
	catalog := &fakeCatalog{searchResp: map[string]any{
		"tracks": map[string]any{"items": []any{
			map[string]any{"id": "id-1"},
			map[string]any{"id": "id-2"},
		}},
	}}
	fd := NewFeeder(store, catalog, newFakeSink())

	ids, err := fd.Search(context.Background(), "tok", "year:2020", 50, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "id-1" || ids[1] != "id-2" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestSearchReturnsEmptyWhenNoItems(t *testing.T) {
	store := newFakeStore()
	catalog := &fakeCatalog{searchResp: map[string]any{"tracks": map[string]any{"items": []any{}}}}
	fd := NewFeeder(store, catalog, newFakeSink())

	ids, err := fd.Search(context.Background(), "tok", "year:2020", 50, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids, got %v", ids)
	}
}

// TestIngestIndexesRawFileUnderInternalTrackID is the regression test for
// the bug where a catalog track's raw file was indexed under its catalog id
// instead of the internal id the store assigned it.
func TestIngestIndexesRawFileUnderInternalTrackID(t *testing.T) {
	store := newFakeStore()
	catalog := &fakeCatalog{batchResp: map[string]any{
		"tracks": []any{map[string]any{"id": "catalog-id-1", "name": "Song"}},
	}}
	sink := newFakeSink()
	fd := NewFeeder(store, catalog, sink)

	count, err := fd.Ingest(context.Background(), "tok", []string{"catalog-id-1"})
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 ensured track, got %d", count)
	}
	if len(store.rawFiles) != 1 {
		t.Fatalf("expected one raw file indexed, got %d", len(store.rawFiles))
	}
	rec := store.rawFiles[0]
	if rec.TrackID != "track-1" {
		t.Fatalf("expected raw file indexed under internal track id track-1, got %s", rec.TrackID)
	}
	if rec.Key != "catalog-id-1" {
		t.Fatalf("expected content-address key to remain the catalog id, got %s", rec.Key)
	}
}

func TestIngestSkipsWhenNoIDs(t *testing.T) {
	store := newFakeStore()
	catalog := &fakeCatalog{}
	fd := NewFeeder(store, catalog, newFakeSink())

	count, err := fd.Ingest(context.Background(), "tok", nil)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
	if catalog.batchIDs != nil {
		t.Fatalf("expected no batch request for empty ids")
	}
}
