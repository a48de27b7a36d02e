package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"event-radar/ingester/internal/config"
)

// RenderAPI is a remote browser rendering service consumed as
// render(url, timeout) -> html. Each provider sits behind its own
// circuit breaker so a dead provider stops eating its timeout on
// every task.
type RenderAPI struct {
	name    string
	url     string
	apiKey  string
	client  *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[string]
}

func NewRenderAPI(cfg config.RenderAPIConfig) *RenderAPI {
	to := cfg.Timeout
	if to <= 0 {
		to = 45 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "render-" + cfg.Name,
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &RenderAPI{
		name:    cfg.Name,
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		client:  NewHTTPClient(to),
		timeout: to,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (r *RenderAPI) Name() string { return "render-" + r.name }

func (r *RenderAPI) Fetch(ctx context.Context, target string) (string, error) {
	html, err := r.breaker.Execute(func() (string, error) {
		return r.render(ctx, target)
	})
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			return "", fe
		}
		// Open breaker or transport error.
		return "", &Error{Strategy: r.Name(), Kind: Classify(err), Err: err}
	}
	return html, nil
}

func (r *RenderAPI) render(ctx context.Context, target string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"url":        target,
		"timeout_ms": r.timeout.Milliseconds(),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &Error{Strategy: r.Name(), Kind: Classify(err), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &Error{Strategy: r.Name(), Kind: FailHTTP, Err: fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(b))}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", &Error{Strategy: r.Name(), Kind: Classify(err), Err: err}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return "", &Error{Strategy: r.Name(), Kind: FailEmpty, Err: fmt.Errorf("provider returned empty html")}
	}
	return string(b), nil
}
