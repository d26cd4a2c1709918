// Package tagclient adapts the Last.fm-like social-tag service: top tags by
// mbid, and top tags by artist/title when the lookup by mbid fails.
package tagclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/andrewbelles/ml-shuffle/internal/httpx"
)

// Client fetches top-tag documents from a single keyed API endpoint.
type Client struct {
	executor *httpx.Executor
	retry    httpx.Config
	apiBase  string
	apiKey   string
}

// New builds a tag Client. apiBase must end in "/".
func New(executor *httpx.Executor, retry httpx.Config, apiBase, apiKey string) *Client {
	return &Client{executor: executor, retry: retry, apiBase: apiBase, apiKey: apiKey}
}

// TopTagsByMBID fetches top tags for a recording identified by mbid.
func (c *Client) TopTagsByMBID(ctx context.Context, mbid string) (map[string]any, error) {
	return c.get(ctx, url.Values{
		"method": {"track.getTopTags"},
		"mbid":   {mbid},
		"api_key": {c.apiKey},
		"format":  {"json"},
	})
}

// TopTags fetches top tags for a recording identified by artist and title,
// the fallback path used when the lookup by mbid fails.
func (c *Client) TopTags(ctx context.Context, artist, title string) (map[string]any, error) {
	return c.get(ctx, url.Values{
		"method":  {"track.getTopTags"},
		"artist":  {artist},
		"track":   {title},
		"api_key": {c.apiKey},
		"format":  {"json"},
	})
}

func (c *Client) get(ctx context.Context, v url.Values) (map[string]any, error) {
	u := c.apiBase + "?" + v.Encode()
	var out map[string]any
	factory := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
	err := c.executor.Do(ctx, factory, c.retry, &out)
	return out, err
}
