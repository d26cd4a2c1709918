// Package httpx provides the single HTTP retry policy used by every external
// client in crawlerd. Pipeline workers never retry on their own; they build a
// request and hand it to an Executor, which is the sole place that decides
// whether a failure is retryable and how long to back off.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/andrewbelles/ml-shuffle/internal/crawlererr"
)

// RequestFactory builds a fresh *http.Request for each attempt. It must be
// safe to call more than once: the Executor calls it once per retry rather
// than cloning a single request. A request whose Body is set without a
// GetBody is still rejected as non-cloneable.
type RequestFactory func(ctx context.Context) (*http.Request, error)

// Config is the retry policy applied by an Executor.
type Config struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

// Executor sends requests built by a RequestFactory, retrying on 429/5xx
// responses and transport errors with exponential backoff plus jitter.
type Executor struct {
	Client *http.Client
}

// NewExecutor builds an Executor around client. A nil client uses http.DefaultClient.
func NewExecutor(client *http.Client) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Executor{Client: client}
}

// generateBackoff mirrors the original crawler's jittered exponential backoff:
// base * 2^min(attempt,6), plus uniform jitter in [50,200]ms.
func generateBackoff(base time.Duration, attempt int) time.Duration {
	shift := attempt
	if shift > 6 {
		shift = 6
	}
	exp := base * time.Duration(uint64(1)<<uint(shift))
	jitter := time.Duration(50+rand.Intn(151)) * time.Millisecond
	return exp + jitter
}

func retryable(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return retryAfter(resp), true
	}
	return 0, false
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v + "s"); err == nil {
		return d
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// Do executes the request built by factory, retrying per cfg, and decodes a
// successful JSON response body into out (skipped if out is nil).
func (e *Executor) Do(ctx context.Context, factory RequestFactory, cfg Config, out any) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return crawlererr.Wrap(crawlererr.Http, "do", err)
		}

		req, err := factory(ctx)
		if err != nil {
			return crawlererr.Wrap(crawlererr.Http, "build request", err)
		}
		if req.Body != nil && req.GetBody == nil {
			return crawlererr.New(crawlererr.Http, "do", "non-cloneable")
		}

		resp, doErr := e.Client.Do(req)
		wait, shouldRetry := retryable(resp, doErr)

		if !shouldRetry {
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return crawlererr.New(crawlererr.Http, "send request", fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
			}
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return crawlererr.Wrap(crawlererr.Parse, "decode response", err)
			}
			return nil
		}

		if doErr != nil {
			lastErr = doErr
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		}

		if attempt >= cfg.MaxRetries {
			return crawlererr.Wrap(crawlererr.Http, fmt.Sprintf("giving up after %d attempts", attempt+1), lastErr)
		}

		backoff := generateBackoff(cfg.BaseBackoff, attempt)
		if wait > backoff {
			backoff = wait
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return crawlererr.Wrap(crawlererr.Http, "do", ctx.Err())
		case <-timer.C:
		}
	}
}
