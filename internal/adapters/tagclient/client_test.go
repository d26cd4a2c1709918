package tagclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andrewbelles/ml-shuffle/internal/httpx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	executor := httpx.NewExecutor(srv.Client())
	c := New(executor, httpx.Config{MaxRetries: 2, BaseBackoff: time.Millisecond}, srv.URL+"/2.0/", "test-key")
	return c, srv
}

func TestTopTagsByMBIDSendsAPIKeyAndMBID(t *testing.T) {
	var gotMBID, gotKey, gotMethod string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMBID = r.URL.Query().Get("mbid")
		gotKey = r.URL.Query().Get("api_key")
		gotMethod = r.URL.Query().Get("method")
		w.Write([]byte(`{"toptags":{"tag":[]}}`))
	})
	defer srv.Close()

	_, err := c.TopTagsByMBID(context.Background(), "mbid-1")
	if err != nil {
		t.Fatalf("TopTagsByMBID() error: %v", err)
	}
	if gotMBID != "mbid-1" || gotKey != "test-key" || gotMethod != "track.getTopTags" {
		t.Fatalf("unexpected query params: mbid=%s key=%s method=%s", gotMBID, gotKey, gotMethod)
	}
}

func TestTopTagsSendsArtistAndTitle(t *testing.T) {
	var gotArtist, gotTrack string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotArtist = r.URL.Query().Get("artist")
		gotTrack = r.URL.Query().Get("track")
		w.Write([]byte(`{"toptags":{"tag":[]}}`))
	})
	defer srv.Close()

	_, err := c.TopTags(context.Background(), "Some Artist", "Some Title")
	if err != nil {
		t.Fatalf("TopTags() error: %v", err)
	}
	if gotArtist != "Some Artist" || gotTrack != "Some Title" {
		t.Fatalf("unexpected artist/track: %s / %s", gotArtist, gotTrack)
	}
}
