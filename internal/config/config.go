// Package config loads crawlerd's runtime configuration from the environment,
// optionally seeded from a .env file, mirroring the grouped configuration
// surface of the daemon it reimplements: HTTP transport, service identity,
// per-service credentials/base-URLs, pipeline concurrency limits, and logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andrewbelles/ml-shuffle/internal/crawlererr"
)

// HTTP holds the shared transport tuning applied to every outbound client.
type HTTP struct {
	Timeout            time.Duration
	ConnectTimeout      time.Duration
	PoolMaxIdlePerHost int
	PoolIdleTimeout    time.Duration
	MaxRedirects       int
}

// Retry holds the retry settings. Only MaxAttempts and BaseBackoff reach the
// HTTP executor; MaxAttempts is passed as its retry count (attempts after the
// first). Jitter and RetryableStatuses are not read by the executor, which
// always adds jitter and always retries on 429 and 5xx.
type Retry struct {
	MaxAttempts        int
	BaseBackoff        time.Duration
	Jitter             bool
	RetryableStatuses  []int
}

// Identity is the application identity sent to services that require a
// descriptive User-Agent (the authority service in particular).
type Identity struct {
	Application string
	UserAgent   string
}

// Catalog configures the Spotify-like track catalog provider.
type Catalog struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIBase      string
}

// Authority configures the MusicBrainz-like canonical recording resolver.
type Authority struct {
	BaseURL       string
	IncRecording  string
	SearchLimit   int
	SearchOffset  int
	MaxRPS        float64
	DurationTolMs int
}

// Acoustic configures the AcousticBrainz-like descriptor service.
type Acoustic struct {
	APIKey  string
	BaseURL string
	Meta    string
}

// Tag configures the Last.fm-like tag service.
type Tag struct {
	APIKey  string
	BaseURL string
}

// Persistence configures the job store and raw-file sink.
type Persistence struct {
	DBPath        string
	RawStoreRoot  string
	SchemaVersion int
}

// Limits bounds pipeline concurrency and pacing, mirroring CrawlerLimits.
type Limits struct {
	AuthorityConcurrency int
	AuthorityIntervalMs  int
	FeatureConcurrency   int
	QueuePollMs          int
	HTTPMaxRetry         int
	HTTPBackoffMs        int
	FeedMinPendingLinks  int
	FeedSearchPageSize   int
}

// Logging configures zap's output shape.
type Logging struct {
	Level  string
	Format string // "json" or "console"
}

// Admin configures the ambient health/metrics endpoint.
type Admin struct {
	Addr string
}

// Config is the fully resolved runtime configuration for crawlerd.
type Config struct {
	HTTP        HTTP
	Retry       Retry
	Identity    Identity
	Catalog     Catalog
	Authority   Authority
	Acoustic    Acoustic
	Tag         Tag
	Persistence Persistence
	Limits      Limits
	Logging     Logging
	Admin       Admin
}

// Load reads crawlerd's configuration from the environment. A .env file in
// the working directory is loaded first (if present) without overriding
// variables already set in the real environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.timeout_ms", 8000)
	v.SetDefault("http.connect_timeout_ms", 2000)
	v.SetDefault("http.pool_max_idle_per_host", 16)
	v.SetDefault("http.pool_idle_timeout_ms", 90000)
	v.SetDefault("http.max_redirects", 4)

	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.base_backoff_ms", 250)
	v.SetDefault("retry.jitter", true)

	v.SetDefault("spotify_token_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify_api_base", "https://api.spotify.com/v1/")

	v.SetDefault("mb_base_url", "https://musicbrainz.org/ws/2/")
	v.SetDefault("mb_inc_recording", "artist-credits+isrcs+releases")
	v.SetDefault("mb_search_limit", 5)
	v.SetDefault("mb_search_offset", 0)
	v.SetDefault("mb_max_rps", 1.0)
	v.SetDefault("mb_search_duration_tol", 1500)

	v.SetDefault("acousticbrainz_base_url", "https://acousticbrainz.org/api/v1/")
	v.SetDefault("acoustid_meta", "recordings+recordingids+releaseids+tracks+compress")

	v.SetDefault("lastfm_base_url", "http://ws.audioscrobbler.com/2.0/")

	v.SetDefault("db_path", "./data/raw.db")
	v.SetDefault("raw_store_root", "./data/raw")
	v.SetDefault("schema_version", 1)

	v.SetDefault("limits.authority_concurrency", 1)
	v.SetDefault("limits.authority_interval_ms", 1100)
	v.SetDefault("limits.feature_concurrency", 4)
	v.SetDefault("limits.queue_poll_ms", 300)
	v.SetDefault("limits.http_max_retry", 3)
	v.SetDefault("limits.http_backoff_ms", 500)
	v.SetDefault("limits.feed_min_pending_links", 50)
	v.SetDefault("limits.feed_search_page_size", 50)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("admin_addr", ":9090")

	application := v.GetString("APPLICATION")
	mbHeader := v.GetString("MUSIC_BRAINZ_HEADER")
	if application == "" || mbHeader == "" {
		return Config{}, crawlererr.New(crawlererr.Config, "load", "APPLICATION and MUSIC_BRAINZ_HEADER must be set")
	}
	userAgent := fmt.Sprintf("%s %s", application, mbHeader)

	clientID := v.GetString("SPOTIFY_CLIENT_ID")
	clientSecret := v.GetString("SPOTIFY_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return Config{}, crawlererr.New(crawlererr.Config, "load", "SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set")
	}

	acoustidKey := v.GetString("ACOUST_ID")
	if acoustidKey == "" {
		return Config{}, crawlererr.New(crawlererr.Config, "load", "ACOUST_ID must be set")
	}

	lastfmKey := v.GetString("LASTFM_API_KEY")
	if lastfmKey == "" {
		return Config{}, crawlererr.New(crawlererr.Config, "load", "LASTFM_API_KEY must be set")
	}

	cfg := Config{
		HTTP: HTTP{
			Timeout:            time.Duration(v.GetInt("http.timeout_ms")) * time.Millisecond,
			ConnectTimeout:     time.Duration(v.GetInt("http.connect_timeout_ms")) * time.Millisecond,
			PoolMaxIdlePerHost: v.GetInt("http.pool_max_idle_per_host"),
			PoolIdleTimeout:    time.Duration(v.GetInt("http.pool_idle_timeout_ms")) * time.Millisecond,
			MaxRedirects:       v.GetInt("http.max_redirects"),
		},
		Retry: Retry{
			MaxAttempts:       v.GetInt("retry.max_attempts"),
			BaseBackoff:       time.Duration(v.GetInt("retry.base_backoff_ms")) * time.Millisecond,
			Jitter:            v.GetBool("retry.jitter"),
			RetryableStatuses: []int{429, 500, 502, 503, 504},
		},
		Identity: Identity{
			Application: application,
			UserAgent:   userAgent,
		},
		Catalog: Catalog{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     v.GetString("spotify_token_url"),
			APIBase:      ensureTrailingSlash(v.GetString("spotify_api_base")),
		},
		Authority: Authority{
			BaseURL:       ensureTrailingSlash(v.GetString("mb_base_url")),
			IncRecording:  v.GetString("mb_inc_recording"),
			SearchLimit:   v.GetInt("mb_search_limit"),
			SearchOffset:  v.GetInt("mb_search_offset"),
			MaxRPS:        v.GetFloat64("mb_max_rps"),
			DurationTolMs: v.GetInt("mb_search_duration_tol"),
		},
		Acoustic: Acoustic{
			APIKey:  acoustidKey,
			BaseURL: ensureTrailingSlash(v.GetString("acousticbrainz_base_url")),
			Meta:    v.GetString("acoustid_meta"),
		},
		Tag: Tag{
			APIKey:  lastfmKey,
			BaseURL: v.GetString("lastfm_base_url"),
		},
		Persistence: Persistence{
			DBPath:        v.GetString("db_path"),
			RawStoreRoot:  v.GetString("raw_store_root"),
			SchemaVersion: v.GetInt("schema_version"),
		},
		Limits: Limits{
			AuthorityConcurrency: v.GetInt("limits.authority_concurrency"),
			AuthorityIntervalMs:  v.GetInt("limits.authority_interval_ms"),
			FeatureConcurrency:   v.GetInt("limits.feature_concurrency"),
			QueuePollMs:          v.GetInt("limits.queue_poll_ms"),
			HTTPMaxRetry:         v.GetInt("limits.http_max_retry"),
			HTTPBackoffMs:        v.GetInt("limits.http_backoff_ms"),
			FeedMinPendingLinks:  v.GetInt("limits.feed_min_pending_links"),
			FeedSearchPageSize:   v.GetInt("limits.feed_search_page_size"),
		},
		Logging: Logging{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Admin: Admin{
			Addr: v.GetString("admin_addr"),
		},
	}

	return cfg, nil
}

func ensureTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
