package pvforecast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Markers the API embeds in otherwise successful responses.
const (
	invalidKeyMarker = "Your api key is not valid"
	noAccessMarker   = "Your account does not give access"
)

// fetcher performs GET requests with exponential backoff.
type fetcher struct {
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     zerolog.Logger

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

func newFetcher(opts clientOptions, logger zerolog.Logger) *fetcher {
	httpClient := opts.httpClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = proxyFunc(opts.proxy)
		httpClient = &http.Client{
			Timeout:   opts.timeout,
			Transport: transport,
		}
	}

	f := &fetcher{
		httpClient: httpClient,
		retries:    opts.retries,
		retryDelay: opts.retryDelay,
		logger:     logger,
		sleep:      sleepContext,
	}
	if opts.rateLimit > 0 {
		burst := opts.burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.rateLimit), burst)
	}
	return f
}

// fetch GETs rawURL, retrying transport errors and non-2xx responses. An
// authentication marker in a 2xx body fails immediately.
func (f *fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	delay := f.retryDelay
	attempts := f.retries + 1
	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= attempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait canceled: %w", err)
			}
		}

		body, status, err := f.get(ctx, rawURL)
		if err == nil {
			if authErr := checkAuthMarkers(body, rawURL); authErr != nil {
				return nil, authErr
			}
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr, lastStatus = err, status

		f.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", delay).
			Msg("PV_Forecast request failed")

		if attempt == attempts {
			break
		}
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}

	return nil, &CommunicationError{
		URL:        redactURL(rawURL),
		Attempts:   attempts,
		StatusCode: lastStatus,
		Err:        lastErr,
	}
}

// get performs a single attempt and returns the body of a 2xx response.
func (f *fetcher) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func checkAuthMarkers(body []byte, rawURL string) error {
	text := string(body)
	switch {
	case strings.Contains(text, invalidKeyMarker):
		return &AuthenticationError{Kind: ErrInvalidCredentials, URL: redactURL(rawURL)}
	case strings.Contains(text, noAccessMarker):
		return &AuthenticationError{Kind: ErrUnauthorized, URL: redactURL(rawURL)}
	}
	return nil
}

// redactURL hides the API key so URLs can be logged and returned in errors.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// proxyFunc selects a proxy by request scheme, falling back to the
// environment when no proxy is configured for the scheme.
func proxyFunc(cfg ProxyConfig) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		var addr string
		switch req.URL.Scheme {
		case "http":
			addr = cfg.HTTP
		case "https":
			addr = cfg.HTTPS
		}
		if addr == "" {
			return http.ProxyFromEnvironment(req)
		}
		return url.Parse(addr)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
