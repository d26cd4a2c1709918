package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APPLICATION", "crawlerd/0.1")
	t.Setenv("MUSIC_BRAINZ_HEADER", "(ops@example.com)")
	t.Setenv("SPOTIFY_CLIENT_ID", "client-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "client-secret")
	t.Setenv("ACOUST_ID", "acoustid-key")
	t.Setenv("LASTFM_API_KEY", "lastfm-key")
}

func TestLoadMissingRequiredVar(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when required vars are unset")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Limits.AuthorityConcurrency != 1 {
		t.Fatalf("expected default authority concurrency 1, got %d", cfg.Limits.AuthorityConcurrency)
	}
	if cfg.Limits.FeatureConcurrency != 4 {
		t.Fatalf("expected default feature concurrency 4, got %d", cfg.Limits.FeatureConcurrency)
	}
	if cfg.Catalog.APIBase != "https://api.spotify.com/v1/" {
		t.Fatalf("unexpected api base: %s", cfg.Catalog.APIBase)
	}
	if cfg.Identity.UserAgent != "crawlerd/0.1 (ops@example.com)" {
		t.Fatalf("unexpected user agent: %s", cfg.Identity.UserAgent)
	}
}

func TestEnsureTrailingSlash(t *testing.T) {
	cases := map[string]string{
		"https://example.com/v1":  "https://example.com/v1/",
		"https://example.com/v1/": "https://example.com/v1/",
		"":                        "",
	}
	for in, want := range cases {
		if got := ensureTrailingSlash(in); got != want {
			t.Fatalf("ensureTrailingSlash(%q) = %q, want %q", in, got, want)
		}
	}
}
