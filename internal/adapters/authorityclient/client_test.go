package authorityclient

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
	retry := httpx.Config{MaxRetries: 2, BaseBackoff: time.Millisecond}
	c := New(executor, retry, srv.URL+"/ws/2/", "test-crawler/1.0 ( test@example.com )")
	return c, srv
}

func TestLookupISRCSetsUserAgentAndPath(t *testing.T) {
	var gotUA, gotPath string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.Write([]byte(`{"recordings":[]}`))
	})
	defer srv.Close()

	_, err := c.LookupISRC(context.Background(), "USRC17607839")
	if err != nil {
		t.Fatalf("LookupISRC() error: %v", err)
	}
	if gotUA != "test-crawler/1.0 ( test@example.com )" {
		t.Fatalf("expected user agent set, got %q", gotUA)
	}
	if gotPath != "/ws/2/isrc/USRC17607839" {
		t.Fatalf("unexpected path %s", gotPath)
	}
}

func TestSearchRecordingEncodesQuery(t *testing.T) {
	var gotQuery string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{"recordings":[]}`))
	})
	defer srv.Close()

	_, err := c.SearchRecording(context.Background(), `recording:"Test" AND artist:"Someone"`, 5, 0)
	if err != nil {
		t.Fatalf("SearchRecording() error: %v", err)
	}
	if gotQuery != `recording:"Test" AND artist:"Someone"` {
		t.Fatalf("unexpected query %s", gotQuery)
	}
}

func TestLookupRecordingIncludesDefaultInc(t *testing.T) {
	var gotInc string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotInc = r.URL.Query().Get("inc")
		w.Write([]byte(`{"id":"mbid-1"}`))
	})
	defer srv.Close()

	_, err := c.LookupRecording(context.Background(), "mbid-1")
	if err != nil {
		t.Fatalf("LookupRecording() error: %v", err)
	}
	if gotInc != "isrcs+artist-credits+releases" {
		t.Fatalf("unexpected inc %s", gotInc)
	}
}

func TestLookupReleaseOmitsIncWhenEmpty(t *testing.T) {
	var sawInc bool
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, sawInc = r.URL.Query()["inc"]
		w.Write([]byte(`{"id":"rel-1"}`))
	})
	defer srv.Close()

	_, err := c.LookupRelease(context.Background(), "rel-1", "")
	if err != nil {
		t.Fatalf("LookupRelease() error: %v", err)
	}
	if sawInc {
		t.Fatalf("expected no inc param when inc is empty")
	}
}
