package fetch

import (
	"context"
	"fmt"
	"time"

	"event-radar/ingester/internal/config"
	"event-radar/ingester/internal/logging"
	"event-radar/ingester/internal/metrics"
)

// Chain tries its strategies in strict order, never in parallel: the
// paid render providers only run when the free direct fetch fails.
type Chain struct {
	strategies     []Strategy
	attemptTimeout time.Duration
	chainTimeout   time.Duration
}

// NewChain builds the fallback chain from config. Render providers
// without an API key are left out of the chain.
func NewChain(fc config.FetchConfig, renders []config.RenderAPIConfig) *Chain {
	strategies := []Strategy{NewDirect(fc.Timeout, fc.UserAgent)}
	for _, rc := range renders {
		if rc.APIKey == "" {
			logging.Info().Str("provider", rc.Name).Msg("render provider has no api key, skipping")
			continue
		}
		strategies = append(strategies, NewRenderAPI(rc))
	}
	return &Chain{
		strategies:     strategies,
		attemptTimeout: fc.Timeout,
		chainTimeout:   fc.ChainTimeout,
	}
}

// NewChainFromStrategies exists for tests and custom wiring.
func NewChainFromStrategies(attemptTimeout, chainTimeout time.Duration, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, attemptTimeout: attemptTimeout, chainTimeout: chainTimeout}
}

// Get fetches url through the chain and returns the html plus the
// name of the strategy that produced it. When every strategy fails it
// returns the last classified error.
func (c *Chain) Get(ctx context.Context, url string) (string, string, error) {
	return c.GetValidated(ctx, url, nil)
}

// GetValidated is Get with a content check: a page that fetches fine
// but fails valid (typically empty-but-expected-nonempty listings)
// counts as a failed attempt and the chain moves to the next strategy.
func (c *Chain) GetValidated(ctx context.Context, url string, valid func(html string) error) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.chainTimeout)
	defer cancel()

	var last error
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			if last == nil {
				last = ctx.Err()
			}
			break
		}
		attemptCtx, attemptCancel := context.WithTimeout(ctx, c.attemptTimeout)
		html, err := s.Fetch(attemptCtx, url)
		attemptCancel()
		if err == nil && valid != nil {
			if verr := valid(html); verr != nil {
				err = &Error{Strategy: s.Name(), Kind: FailEmpty, Err: verr}
			}
		}
		if err == nil {
			return html, s.Name(), nil
		}
		kind := Classify(err)
		metrics.FetchFallbacks.WithLabelValues(s.Name(), kind).Inc()
		logging.Warn().
			Str("strategy", s.Name()).
			Str("failure", kind).
			Str("url", url).
			Err(err).
			Msg("fetch attempt failed")
		last = err
	}
	if last == nil {
		last = fmt.Errorf("no fetch strategies configured")
	}
	return "", "", last
}
