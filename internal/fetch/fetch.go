// Package fetch retrieves one page for the scrapers, surviving
// anti-bot blocking with an ordered fallback chain: a direct request
// first, then the configured remote browser rendering providers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Failure classes reported into outcomes and metrics.
const (
	FailTimeout = "timeout"
	FailBlocked = "blocked"
	FailEmpty   = "empty"
	FailHTTP    = "http"
)

// Error is one classified attempt failure. The chain aggregates these;
// callers only see the last one when every strategy has failed.
type Error struct {
	Strategy string
	Kind     string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Strategy, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps an attempt error to a failure class.
func Classify(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return FailTimeout
	}
	return FailHTTP
}

// Strategy is one way of obtaining rendered HTML for a URL.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// NewHTTPClient builds the tuned client the strategies share. Each
// strategy talks to a handful of hosts repeatedly, so idle conns are
// kept per host rather than globally generous.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}
