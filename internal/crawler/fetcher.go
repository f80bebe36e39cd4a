package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bool64/ctxd"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	// ErrUnexpectedStatusCode indicates that the server did not answer with a 2xx status code.
	ErrUnexpectedStatusCode = Error("unexpected status code")
)

const (
	// DefaultRateLimitMarker is the snippet of the obfuscated script served by the anti-scraping layer instead of the
	// page when the requests are too fast.
	DefaultRateLimitMarker = "jsjiami.com.v6"

	// defaultTimeout is the default timeout for requesting an url.
	defaultTimeout = 30 * time.Second
)

// Outcome is the classification of a fetch.
type Outcome int

const (
	// OutcomeBody means that the page has been fetched.
	OutcomeBody Outcome = iota
	// OutcomeNetworkFailure means that the request could not be completed.
	OutcomeNetworkFailure
	// OutcomeRateLimited means that the server answered with the anti-scraping page.
	OutcomeRateLimited
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeBody:
		return "body"
	case OutcomeNetworkFailure:
		return "network failure"
	case OutcomeRateLimited:
		return "rate limited"
	}

	return fmt.Sprintf("Outcome(%d)", int(o))
}

// FetchResult is the result of a fetch.
type FetchResult struct {
	Outcome Outcome
	// Body is the page decoded to UTF-8, set only when the outcome is OutcomeBody.
	Body string
	// Err is the cause of a network failure.
	Err error
}

// Fetcher fetches a page once, without retrying.
type Fetcher interface {
	Fetch(ctx context.Context, source string) FetchResult
}

var _ Fetcher = (FetcherFunc)(nil)

// FetcherFunc is an adapter to use a function as a Fetcher.
type FetcherFunc func(ctx context.Context, source string) FetchResult

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, source string) FetchResult {
	return f(ctx, source)
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher fetches pages with plain HTTP GET requests.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	log     ctxd.Logger

	// marker is the literal that identifies the anti-scraping page. Default value is DefaultRateLimitMarker.
	marker string
}

// Fetch fetches the page and classifies the outcome.
//
// Connection errors, timeouts, non-2xx status codes and broken bodies are network failures. A body that contains the
// rate limit marker is rate limited. The body is decoded to UTF-8 according to the Content-Type header or the <meta>
// tags of the page.
func (f HTTPFetcher) Fetch(ctx context.Context, source string) FetchResult {
	ctx = ctxd.AddFields(ctx,
		"http.url", source,
		"http.timeout", f.client.Timeout.String(),
	)

	body, err := f.doRequest(ctx, source)
	if err != nil {
		return FetchResult{Outcome: OutcomeNetworkFailure, Err: err}
	}

	if f.marker != "" && strings.Contains(body, f.marker) {
		f.log.Debug(ctx, "found rate limit marker", "http.marker", f.marker)

		return FetchResult{Outcome: OutcomeRateLimited}
	}

	return FetchResult{Outcome: OutcomeBody, Body: body}
}

func (f HTTPFetcher) doRequest(ctx context.Context, source string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	f.log.Debug(ctx, "send http request")

	startTime := time.Now()
	resp, err := f.client.Do(req)
	endTime := time.Now()

	if err != nil {
		return "", fmt.Errorf("failed to send http request: %w", err)
	}

	defer resp.Body.Close() // nolint: errcheck

	f.log.Debug(ctx, "received http response",
		"http.duration", endTime.Sub(startTime).String(),
		"http.status_code", resp.StatusCode,
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to detect charset: %w", err)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read http response: %w", err)
	}

	return string(body), nil
}

// NewHTTPFetcher creates a new HTTPFetcher.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{}, // Default HTTP Client.
		log:    ctxd.NoOpLogger{},
		marker: DefaultRateLimitMarker,
	}

	for _, opt := range opts {
		opt.applyHTTPFetcherOption(f)
	}

	if f.client.Timeout == 0 {
		f.client.Timeout = defaultTimeout
	}

	return f
}

// HTTPFetcherOption is option to set up HTTPFetcher.
type HTTPFetcherOption interface {
	applyHTTPFetcherOption(f *HTTPFetcher)
}

type httpFetcherOptionFunc func(f *HTTPFetcher)

func (fn httpFetcherOptionFunc) applyHTTPFetcherOption(f *HTTPFetcher) {
	fn(f)
}

// WithFetcherLogger sets logger for HTTPFetcher.
func WithFetcherLogger(l ctxd.Logger) HTTPFetcherOption {
	return httpFetcherOptionFunc(func(f *HTTPFetcher) {
		f.log = l
	})
}

// WithClientTimeout sets timeout for HTTP client.
func WithClientTimeout(d time.Duration) HTTPFetcherOption {
	return httpFetcherOptionFunc(func(f *HTTPFetcher) {
		f.client.Timeout = d
	})
}

// WithRateLimitMarker sets the literal that identifies the anti-scraping page. An empty marker disables the detection.
func WithRateLimitMarker(marker string) HTTPFetcherOption {
	return httpFetcherOptionFunc(func(f *HTTPFetcher) {
		f.marker = marker
	})
}

// WithRequestsPerSecond limits the number of requests per second. Zero or less means no limit.
func WithRequestsPerSecond(rps float64) HTTPFetcherOption {
	return httpFetcherOptionFunc(func(f *HTTPFetcher) {
		if rps <= 0 {
			f.limiter = nil

			return
		}

		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	})
}
