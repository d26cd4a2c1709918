package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andrewbelles/ml-shuffle/internal/crawlererr"
)

func factoryFor(t *testing.T, url string) RequestFactory {
	t.Helper()
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	e := NewExecutor(srv.Client())
	var out struct {
		OK bool `json:"ok"`
	}
	if err := e.Do(context.Background(), factoryFor(t, srv.URL), Config{MaxRetries: 3, BaseBackoff: time.Millisecond}, &out); err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected decoded ok=true")
	}
}

func TestDoRetriesOn503ThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	e := NewExecutor(srv.Client())
	var out map[string]any
	err := e.Do(context.Background(), factoryFor(t, srv.URL), Config{MaxRetries: 5, BaseBackoff: time.Millisecond}, &out)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewExecutor(srv.Client())
	err := e.Do(context.Background(), factoryFor(t, srv.URL), Config{MaxRetries: 2, BaseBackoff: time.Millisecond}, nil)
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if !crawlererr.Of(err, crawlererr.Http) {
		t.Fatalf("expected Http kind error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}

func TestDoDoesNotRetryOn404(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewExecutor(srv.Client())
	err := e.Do(context.Background(), factoryFor(t, srv.URL), Config{MaxRetries: 3, BaseBackoff: time.Millisecond}, nil)
	if err == nil {
		t.Fatalf("expected error on 404")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable status, got %d", attempts)
	}
}

// TestDoRejectsNonCloneableBody covers the non-cloneable request path: a
// factory that sets Body directly (bypassing http.NewRequest's automatic
// GetBody population) cannot be safely replayed across retry attempts.
func TestDoRejectsNonCloneableBody(t *testing.T) {
	e := NewExecutor(http.DefaultClient)
	factory := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://example.invalid", nil)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(strings.NewReader("payload"))
		req.GetBody = nil
		return req, nil
	}

	err := e.Do(context.Background(), factory, Config{MaxRetries: 2, BaseBackoff: time.Millisecond}, nil)
	if err == nil {
		t.Fatalf("expected non-cloneable error")
	}
	if !crawlererr.Of(err, crawlererr.Http) {
		t.Fatalf("expected Http kind error, got %v", err)
	}
}

func TestGenerateBackoffCapsExponentAndAddsJitter(t *testing.T) {
	base := 500 * time.Millisecond
	for _, attempt := range []int{0, 1, 6, 20} {
		backoff := generateBackoff(base, attempt)
		shift := attempt
		if shift > 6 {
			shift = 6
		}
		minExpected := base * time.Duration(uint64(1)<<uint(shift))
		if backoff < minExpected {
			t.Fatalf("attempt %d: backoff %v below floor %v", attempt, backoff, minExpected)
		}
		if backoff > minExpected+200*time.Millisecond {
			t.Fatalf("attempt %d: backoff %v exceeds jitter ceiling", attempt, backoff)
		}
	}
}

func TestGenerateBackoffCapsAtSameFloorPastShiftSix(t *testing.T) {
	base := 10 * time.Millisecond
	floor := base * (1 << 6)
	for i := 0; i < 20; i++ {
		if b := generateBackoff(base, 6); b < floor || b > floor+200*time.Millisecond {
			t.Fatalf("attempt 6 backoff %v out of expected range [%v, %v]", b, floor, floor+200*time.Millisecond)
		}
		if b := generateBackoff(base, 12); b < floor || b > floor+200*time.Millisecond {
			t.Fatalf("attempt 12 backoff %v should share attempt-6's exponent floor", b)
		}
	}
}
