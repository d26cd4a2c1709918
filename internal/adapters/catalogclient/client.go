// Package catalogclient adapts the Spotify-like track catalog provider:
// client-credentials token issuance, keyword search admission, batched and
// single-track lookup by id, and the provider's own audio-feature endpoints
// (unused by the pipeline, which sources acoustic features elsewhere, but
// kept for parity with the provider's full surface).
package catalogclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/andrewbelles/ml-shuffle/internal/httpx"
)

// Client talks to the catalog provider through a shared httpx.Executor, so
// token requests and track fetches retry under the same policy as every
// other external call the daemon makes.
type Client struct {
	http     *http.Client
	executor *httpx.Executor
	retry    httpx.Config

	// creds holds client-credentials identity only; the token POST itself is
	// issued manually through the Executor rather than via
	// clientcredentials.Config.Client(), since that path has its own
	// internal retry/caching that would bypass the daemon's single policy.
	creds    clientcredentials.Config
	apiBase  string
	tokenURL string
}

// New builds a catalog Client. apiBase must end in "/".
func New(client *http.Client, executor *httpx.Executor, retry httpx.Config, clientID, clientSecret, tokenURL, apiBase string) *Client {
	return &Client{
		http:     client,
		executor: executor,
		retry:    retry,
		creds: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		apiBase:  apiBase,
		tokenURL: tokenURL,
	}
}

// Token performs a client-credentials token request and returns the bearer
// token plus its lifetime in seconds.
func (c *Client) Token(ctx context.Context) (string, int64, error) {
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}

	factory := func(ctx context.Context) (*http.Request, error) {
		body := strings.NewReader("grant_type=client_credentials")
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, body)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	if err := c.executor.Do(ctx, factory, c.retry, &out); err != nil {
		return "", 0, err
	}
	if out.ExpiresIn == 0 {
		out.ExpiresIn = 3600
	}
	return out.AccessToken, out.ExpiresIn, nil
}

// Search runs a keyword search against the track catalog, returning the raw
// decoded response.
func (c *Client) Search(ctx context.Context, bearer, query string, limit, offset int) (map[string]any, error) {
	u := c.apiBase + "search?" + url.Values{
		"type":   {"track"},
		"q":      {query},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}.Encode()

	var out map[string]any
	err := c.executor.Do(ctx, c.authorizedGET(u, bearer), c.retry, &out)
	return out, err
}

// BatchTracks fetches multiple tracks by id in a single request.
func (c *Client) BatchTracks(ctx context.Context, bearer string, ids []string) (map[string]any, error) {
	u := c.apiBase + "tracks?" + url.Values{"ids": {strings.Join(ids, ",")}}.Encode()

	var out map[string]any
	err := c.executor.Do(ctx, c.authorizedGET(u, bearer), c.retry, &out)
	return out, err
}

// Track fetches a single track by id. Not called by the ingestion pipeline
// (BatchTracks covers every track the feed loop discovers), but part of the
// provider's contract and cheap to expose alongside it.
func (c *Client) Track(ctx context.Context, bearer, trackID string) (map[string]any, error) {
	u := c.apiBase + "tracks/" + trackID

	var out map[string]any
	err := c.executor.Do(ctx, c.authorizedGET(u, bearer), c.retry, &out)
	return out, err
}

// AudioFeatures fetches a single track's provider-computed audio features.
// Unused by the pipeline, which sources acoustic features from the
// acoustic descriptor service instead; kept for parity with the provider's
// surface.
func (c *Client) AudioFeatures(ctx context.Context, bearer, trackID string) (map[string]any, error) {
	u := c.apiBase + "audio-features/" + trackID

	var out map[string]any
	err := c.executor.Do(ctx, c.authorizedGET(u, bearer), c.retry, &out)
	return out, err
}

// BatchAudioFeatures fetches provider-computed audio features for multiple
// tracks in one request. Unused by the pipeline, same rationale as
// AudioFeatures.
func (c *Client) BatchAudioFeatures(ctx context.Context, bearer string, ids []string) (map[string]any, error) {
	u := c.apiBase + "audio-features?" + url.Values{"ids": {strings.Join(ids, ",")}}.Encode()

	var out map[string]any
	err := c.executor.Do(ctx, c.authorizedGET(u, bearer), c.retry, &out)
	return out, err
}

func (c *Client) authorizedGET(url, bearer string) httpx.RequestFactory {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
		return req, nil
	}
}
