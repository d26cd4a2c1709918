package httpx

import (
	"context"
	"net"
	"net/http"
	"time"
)

// TransportConfig is the shared connection tuning applied to every outbound
// client, mirroring the single client-builder the original crawler funneled
// every service's HTTP client through.
type TransportConfig struct {
	Timeout            time.Duration
	ConnectTimeout     time.Duration
	PoolMaxIdlePerHost int
	PoolIdleTimeout    time.Duration
	MaxRedirects       int
}

// NewClient builds an *http.Client tuned per cfg. All four external-service
// clients share this builder instead of each hand-rolling transport settings.
func NewClient(cfg TransportConfig) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		MaxIdleConnsPerHost: cfg.PoolMaxIdlePerHost,
		IdleConnTimeout:     cfg.PoolIdleTimeout,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
	if cfg.MaxRedirects > 0 {
		max := cfg.MaxRedirects
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= max {
				return http.ErrUseLastResponse
			}
			return nil
		}
	}
	return client
}
