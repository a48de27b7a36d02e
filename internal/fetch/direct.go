package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// captchaMarkers are body substrings that mean the page is a challenge
// interstitial rather than real content.
var captchaMarkers = []string{
	"captcha",
	"cf-chl",
	"just a moment",
	"are you a human",
	"access denied",
}

// Direct performs a plain GET with browser-like headers. It is the
// free first link of the chain; paid render providers only run when
// this fails.
type Direct struct {
	client    *http.Client
	userAgent string
}

func NewDirect(timeout time.Duration, userAgent string) *Direct {
	return &Direct{client: NewHTTPClient(timeout), userAgent: userAgent}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{Strategy: d.Name(), Kind: FailHTTP, Err: err}
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &Error{Strategy: d.Name(), Kind: Classify(err), Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return "", &Error{Strategy: d.Name(), Kind: FailBlocked, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	if resp.StatusCode/100 != 2 {
		return "", &Error{Strategy: d.Name(), Kind: FailHTTP, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", &Error{Strategy: d.Name(), Kind: Classify(err), Err: err}
	}
	body := string(b)
	if strings.TrimSpace(body) == "" {
		return "", &Error{Strategy: d.Name(), Kind: FailEmpty, Err: fmt.Errorf("empty body")}
	}
	if blocked(body) {
		return "", &Error{Strategy: d.Name(), Kind: FailBlocked, Err: fmt.Errorf("anti-bot challenge page")}
	}
	return body, nil
}

func blocked(body string) bool {
	// Challenge pages are small; cap the scan.
	probe := body
	if len(probe) > 4096 {
		probe = probe[:4096]
	}
	probe = strings.ToLower(probe)
	for _, m := range captchaMarkers {
		if strings.Contains(probe, m) {
			return true
		}
	}
	return false
}
