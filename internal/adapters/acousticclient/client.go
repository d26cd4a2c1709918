// Package acousticclient adapts the AcousticBrainz-like acoustic descriptor
// service: high-level and low-level feature retrieval keyed by mbid.
package acousticclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/andrewbelles/ml-shuffle/internal/httpx"
)

// Client fetches acoustic descriptor documents by mbid and level.
type Client struct {
	executor *httpx.Executor
	retry    httpx.Config
	apiBase  string
}

// New builds an acoustic Client. apiBase must end in "/".
func New(executor *httpx.Executor, retry httpx.Config, apiBase string) *Client {
	return &Client{executor: executor, retry: retry, apiBase: apiBase}
}

// Features fetches the descriptor document for mbid at the given level
// ("high-level" or "low-level").
func (c *Client) Features(ctx context.Context, mbid, level string) (map[string]any, error) {
	u := c.apiBase + url.PathEscape(mbid) + "/0/" + level

	var out map[string]any
	factory := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
	err := c.executor.Do(ctx, factory, c.retry, &out)
	return out, err
}
