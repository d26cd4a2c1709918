// Package authorityclient adapts the MusicBrainz-like canonical recording
// resolver: ISRC lookup, Lucene-style recording search, and recording/release
// lookup by mbid.
package authorityclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andrewbelles/ml-shuffle/internal/httpx"
)

// Client requires a distinguishing User-Agent header on every request, per
// the authority provider's usage policy; userAgent is set once at
// construction and attached to every outbound request.
type Client struct {
	executor  *httpx.Executor
	retry     httpx.Config
	apiBase   string
	userAgent string
}

// New builds an authority Client. apiBase must end in "/".
func New(executor *httpx.Executor, retry httpx.Config, apiBase, userAgent string) *Client {
	return &Client{executor: executor, retry: retry, apiBase: apiBase, userAgent: userAgent}
}

// LookupISRC resolves a recording by its ISRC.
func (c *Client) LookupISRC(ctx context.Context, isrc string) (map[string]any, error) {
	u := c.apiBase + "isrc/" + url.PathEscape(isrc) + "?" + url.Values{"fmt": {"json"}}.Encode()
	var out map[string]any
	err := c.executor.Do(ctx, c.get(u), c.retry, &out)
	return out, err
}

// SearchRecording runs a Lucene-style recording search.
func (c *Client) SearchRecording(ctx context.Context, luceneQuery string, limit, offset int) (map[string]any, error) {
	u := c.apiBase + "recording?" + url.Values{
		"query":  {luceneQuery},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
		"fmt":    {"json"},
	}.Encode()
	var out map[string]any
	err := c.executor.Do(ctx, c.get(u), c.retry, &out)
	return out, err
}

// LookupRecording fetches a single recording by mbid.
func (c *Client) LookupRecording(ctx context.Context, mbid string) (map[string]any, error) {
	u := c.apiBase + "recording/" + url.PathEscape(mbid) + "?" + url.Values{
		"inc": {"isrcs+artist-credits+releases"},
		"fmt": {"json"},
	}.Encode()
	var out map[string]any
	err := c.executor.Do(ctx, c.get(u), c.retry, &out)
	return out, err
}

// LookupRelease fetches a single release by mbid, with caller-controlled inc params.
func (c *Client) LookupRelease(ctx context.Context, mbid, inc string) (map[string]any, error) {
	v := url.Values{"fmt": {"json"}}
	if inc != "" {
		v.Set("inc", inc)
	}
	u := c.apiBase + "release/" + url.PathEscape(mbid) + "?" + v.Encode()
	var out map[string]any
	err := c.executor.Do(ctx, c.get(u), c.retry, &out)
	return out, err
}

func (c *Client) get(u string) httpx.RequestFactory {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	}
}
