package pvforecast

import (
	"net/http"
	"time"
)

// DefaultBaseURL is the v4 PV_Forecast API root.
const DefaultBaseURL = "https://api0.solar.sheffield.ac.uk/pvforecast/api/v4/"

const (
	defaultRetries    = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultTimeout    = 30 * time.Second
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	baseURL    string
	retries    int
	retryDelay time.Duration
	timeout    time.Duration
	proxy      ProxyConfig
	httpClient *http.Client
	rateLimit  float64
	burst      int
	decoder    Decoder
}

func defaultOptions() clientOptions {
	return clientOptions{
		baseURL:    DefaultBaseURL,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		timeout:    defaultTimeout,
		decoder:    JSONDecoder{},
	}
}

// ProxyConfig holds per-scheme proxy addresses. Empty fields mean no proxy.
type ProxyConfig struct {
	HTTP  string
	HTTPS string
}

// WithRetries sets the number of additional attempts after a failed request.
func WithRetries(retries int) Option {
	return func(o *clientOptions) {
		if retries >= 0 {
			o.retries = retries
		}
	}
}

// WithRetryDelay sets the first backoff delay. It doubles after every attempt.
func WithRetryDelay(delay time.Duration) Option {
	return func(o *clientOptions) {
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithProxy routes requests through the given proxies.
func WithProxy(proxy ProxyConfig) Option {
	return func(o *clientOptions) {
		o.proxy = proxy
	}
}

// WithHTTPClient replaces the HTTP client. Timeout and proxy options are
// ignored when a custom client is supplied.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithRateLimit caps outgoing requests at rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *clientOptions) {
		o.rateLimit = rps
		o.burst = burst
	}
}

// WithLegacyCSV makes the client talk to the legacy delimited-text API
// generation. Pair it with WithBaseURL pointing at that generation's root.
func WithLegacyCSV() Option {
	return func(o *clientOptions) {
		o.decoder = CSVDecoder{}
	}
}
