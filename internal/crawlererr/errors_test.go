package crawlererr

import (
	"errors"
	"testing"
)

func TestWrapNil(t *testing.T) {
	if Wrap(Http, "do", nil) != nil {
		t.Fatalf("expected nil error to stay nil")
	}
}

func TestOfMatchesKind(t *testing.T) {
	err := Wrap(Http, "fetch track", errors.New("status 503"))
	if !Of(err, Http) {
		t.Fatalf("expected Of(err, Http) to be true")
	}
	if Of(err, Storage) {
		t.Fatalf("expected Of(err, Storage) to be false")
	}
}

func TestIsAllowsSentinelStyleCheck(t *testing.T) {
	err := Wrap(NotFound, "get_track_metadata", errors.New("no rows"))
	sentinel := &Error{Kind: NotFound}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to match on Kind alone")
	}
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := New(Config, "load", "SPOTIFY_CLIENT_ID was not set")
	want := "config: load: SPOTIFY_CLIENT_ID was not set"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}
