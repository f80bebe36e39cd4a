package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"golang.org/x/sync/errgroup"

	"github.com/prcadmin/prcadmin/internal/collector"
	"github.com/prcadmin/prcadmin/internal/division"
	"github.com/prcadmin/prcadmin/internal/footprint"
)

const (
	// DefaultNumWorkers is the default value for number of workers.
	DefaultNumWorkers = 5
	// DefaultNetworkBackoff is the default delay before retrying a page that could not be fetched.
	DefaultNetworkBackoff = 5 * time.Second
	// DefaultRateLimitBackoff is the default delay before retrying a page that has been rate limited.
	DefaultRateLimitBackoff = time.Minute
)

// RecordWriter persists the records found by the crawler. It is called by a single goroutine.
type RecordWriter interface {
	WriteRecord(ctx context.Context, r division.Record) error
}

// Report sums up a crawl.
type Report struct {
	PagesScanned int64
	RecordsSaved int64
	// Abandoned lists the pages given up after too many failed attempts, sorted.
	Abandoned []string
}

// DivisionCrawler crawls the tree of division listing pages and writes every division found to a RecordWriter.
//
// A fixed pool of workers takes pages from a frontier queue, fetches them, publishes the records to a result queue and
// puts the child pages back to the frontier. A single writer drains the result queue. The crawl is over when the
// frontier has no pending or in-flight page, and the result queue has been drained.
type DivisionCrawler struct {
	fetcher   Fetcher
	collector collector.DivisionCollector
	clock     Clock
	progress  Progress
	log       ctxd.Logger

	// numWorkers is the number of workers running in parallel to use for crawling. Default value is DefaultNumWorkers.
	numWorkers int
	// networkBackoff is the delay before retrying a page after a network failure.
	networkBackoff time.Duration
	// rateLimitBackoff is the delay before retrying a page after being rate limited.
	rateLimitBackoff time.Duration
	// maxAttempts is the number of failed attempts after which a page is abandoned. Zero means retry forever.
	maxAttempts int
	// dedup skips the child pages that have already been discovered.
	dedup bool
	// footprintInterval enables the resource usage report when positive.
	footprintInterval time.Duration
}

// Crawl crawls from the root page until the whole tree has been visited and every record has been written.
//
// Network failures and rate limiting are retried after a backoff, they never make the crawl fail. The crawl fails if a
// page is malformed, a record cannot be written, or the context is canceled. In that case the report covers the work
// done so far.
func (c *DivisionCrawler) Crawl(ctx context.Context, root string, w RecordWriter) (Report, error) {
	r := c.newRun()
	startTime := time.Now()
	ctx = ctxd.AddFields(ctx, "crawler.root", root)

	c.log.Info(ctx, "started crawling", "crawler.num_workers", c.numWorkers)

	r.admit(root)
	r.frontier.Put(root)

	g, gCtx := errgroup.WithContext(ctx)

	for i := 0; i < c.numWorkers; i++ {
		workerCtx := ctxd.AddFields(gCtx, "crawler.worker_id", i)

		g.Go(func() error {
			return r.work(workerCtx)
		})
	}

	g.Go(func() error {
		return r.drain(gCtx, w)
	})

	g.Go(func() error {
		return r.join(gCtx)
	})

	if c.footprintInterval > 0 {
		trackCtx, stopTracking := context.WithCancel(ctx)
		defer stopTracking()

		go footprint.Track(trackCtx, c.log, c.footprintInterval,
			footprint.Gauge{Name: "crawler.frontier_pending", Value: r.frontier.Len},
			footprint.Gauge{Name: "crawler.results_pending", Value: r.results.Len},
		)
	}

	err := g.Wait()
	report := r.report()

	fields := []interface{}{
		"crawler.duration", time.Since(startTime).String(),
		"crawler.pages_scanned", report.PagesScanned,
		"crawler.records_saved", report.RecordsSaved,
		"crawler.abandoned", len(report.Abandoned),
	}

	if err != nil {
		c.log.Error(ctx, "stopped crawling", append(fields, "error", err)...)

		return report, err
	}

	c.log.Info(ctx, "finished crawling", fields...)

	return report, nil
}

func (c *DivisionCrawler) newRun() *run {
	return &run{
		DivisionCrawler: c,
		frontier:        NewQueue[string](),
		results:         NewQueue[division.Record](),
		failures:        make(map[string]int),
	}
}

// run is the state of a single crawl.
type run struct {
	*DivisionCrawler

	frontier *Queue[string]
	results  *Queue[division.Record]
	counters Counters
	seen     sync.Map

	mu        sync.Mutex
	failures  map[string]int
	abandoned []string
}

// work takes pages from the frontier until it is closed.
func (r *run) work(ctx context.Context) error {
	r.log.Debug(ctx, "started crawler worker")

	defer r.log.Debug(ctx, "stopped crawler worker")

	for {
		source, err := r.frontier.Get(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return nil
			}

			return err
		}

		err = r.visit(ctx, source)

		// Every page taken is marked done exactly once, whatever happened to it. A retried page has been put again
		// before, so the frontier never looks idle while a retry is pending.
		r.frontier.Done()

		if err != nil {
			return err
		}
	}
}

func (r *run) visit(ctx context.Context, source string) error {
	startTime := time.Now()
	ctx = ctxd.AddFields(ctx, "crawler.url", source)

	r.log.Debug(ctx, "started visiting")

	res := r.fetcher.Fetch(ctx, source)

	switch res.Outcome {
	case OutcomeBody:

	case OutcomeNetworkFailure:
		if ctx.Err() != nil {
			return ctx.Err() // nolint: wrapcheck
		}

		r.log.Warn(ctx, "failed to fetch page", "error", res.Err, "crawler.backoff", r.networkBackoff.String())

		return r.retry(ctx, source, r.networkBackoff)

	case OutcomeRateLimited:
		r.log.Warn(ctx, "too fast to fetch page", "crawler.backoff", r.rateLimitBackoff.String())

		return r.retry(ctx, source, r.rateLimitBackoff)

	default:
		return fmt.Errorf("could not fetch %q: unknown outcome %s", source, res.Outcome)
	}

	sourceURL, err := url.Parse(source)
	if err != nil {
		return fmt.Errorf("could not parse %q: %w", source, err)
	}

	page, err := r.collector.Collect(strings.NewReader(res.Body), sourceURL)
	if err != nil {
		r.log.Error(ctx, "failed to collect divisions", "error", err)

		return fmt.Errorf("could not collect divisions from %q: %w", source, err)
	}

	for _, rec := range page.Records {
		r.results.Put(rec)
	}

	numChildren := 0

	for _, child := range page.Children {
		if !r.admit(child) {
			continue
		}

		r.frontier.Put(child)
		numChildren++
	}

	r.counters.PageScanned()
	r.progress.PageScanned()

	r.log.Debug(ctx, "finished visiting",
		"crawler.duration", time.Since(startTime).String(),
		"crawler.num_records", len(page.Records),
		"crawler.num_children", numChildren,
	)

	return nil
}

// retry puts the page back to the frontier after the backoff, unless it has failed too many times.
func (r *run) retry(ctx context.Context, source string, backoff time.Duration) error {
	if r.maxAttempts > 0 {
		r.mu.Lock()
		r.failures[source]++
		attempts := r.failures[source]

		// Without deduplication, the same page may still be queued after being abandoned.
		if attempts == r.maxAttempts {
			r.abandoned = append(r.abandoned, source)
		}
		r.mu.Unlock()

		if attempts == r.maxAttempts {
			r.log.Error(ctx, "abandoned page", "crawler.attempts", attempts)
		}

		if attempts >= r.maxAttempts {
			return nil
		}
	}

	if err := r.clock.Sleep(ctx, backoff); err != nil {
		return fmt.Errorf("backoff canceled: %w", err)
	}

	r.frontier.Put(source)

	return nil
}

// drain writes the records of the result queue until it is closed.
func (r *run) drain(ctx context.Context, w RecordWriter) error {
	r.log.Debug(ctx, "started record writer")

	defer r.log.Debug(ctx, "stopped record writer")

	for {
		rec, err := r.results.Get(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return nil
			}

			return err
		}

		err = w.WriteRecord(ctx, rec)

		r.results.Done()

		if err != nil {
			r.log.Error(ctx, "failed to write record", "division.code", rec.Code, "error", err)

			return fmt.Errorf("could not write record %q: %w", rec.Code, err)
		}

		r.counters.RecordSaved()
		r.progress.RecordSaved()
	}
}

// join waits for the frontier then the result queue to be idle, and closes both to stop the workers and the writer.
func (r *run) join(ctx context.Context) error {
	defer r.results.Close()
	defer r.frontier.Close()

	if err := r.frontier.Join(ctx); err != nil {
		return err
	}

	r.log.Debug(ctx, "all pages visited", "crawler.results_pending", r.results.Unfinished())

	return r.results.Join(ctx)
}

// admit tells whether a discovered page should be put to the frontier.
func (r *run) admit(link string) bool {
	if !r.dedup {
		return true
	}

	_, seen := r.seen.LoadOrStore(normalizeURL(link), struct{}{})

	return !seen
}

func (r *run) report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	abandoned := make([]string, len(r.abandoned))
	copy(abandoned, r.abandoned)
	sort.Strings(abandoned)

	return Report{
		PagesScanned: r.counters.PagesScanned(),
		RecordsSaved: r.counters.RecordsSaved(),
		Abandoned:    abandoned,
	}
}

// normalizeURL drops the fragment and lower-cases the scheme and the host, so that the same page reached with different
// spellings is seen once.
func normalizeURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	return u.String()
}

// NewDivisionCrawler creates a new DivisionCrawler.
//
// Usage:
//
//	c := NewDivisionCrawler(
//		WithFetcher(NewHTTPFetcher()),
//		WithNumWorkers(5),
//	)
//
//	report, err := c.Crawl(ctx, "http://www.stats.gov.cn/sj/tjbz/tjyqhdmhcxhfdm/2023/", w)
func NewDivisionCrawler(opts ...DivisionCrawlerOption) *DivisionCrawler {
	c := &DivisionCrawler{
		collector: collector.NewHTMLDivisionCollector(),
		clock:     SystemClock(),
		progress:  NoOpProgress{},
		log:       ctxd.NoOpLogger{},

		numWorkers:       DefaultNumWorkers,
		networkBackoff:   DefaultNetworkBackoff,
		rateLimitBackoff: DefaultRateLimitBackoff,
	}

	for _, opt := range opts {
		opt.applyDivisionCrawlerOption(c)
	}

	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(WithFetcherLogger(c.log))
	}

	// Safeguard the number of workers, the crawl would never start without any.
	if c.numWorkers < 1 {
		c.numWorkers = DefaultNumWorkers
	}

	return c
}

// DivisionCrawlerOption is option to set up DivisionCrawler.
type DivisionCrawlerOption interface {
	applyDivisionCrawlerOption(c *DivisionCrawler)
}

type divisionCrawlerOptionFunc func(c *DivisionCrawler)

func (f divisionCrawlerOptionFunc) applyDivisionCrawlerOption(c *DivisionCrawler) {
	f(c)
}

// WithLogger sets logger for DivisionCrawler.
func WithLogger(l ctxd.Logger) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.log = l
	})
}

// WithFetcher sets the fetcher of the pages.
func WithFetcher(f Fetcher) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.fetcher = f
	})
}

// WithCollector sets the collector of the divisions.
func WithCollector(dc collector.DivisionCollector) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.collector = dc
	})
}

// WithClock sets the clock used for the backoff.
func WithClock(clock Clock) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.clock = clock
	})
}

// WithProgress sets the observer of the progress.
func WithProgress(p Progress) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.progress = p
	})
}

// WithNumWorkers sets number of workers for DivisionCrawler.
func WithNumWorkers(numWorkers int) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.numWorkers = numWorkers
	})
}

// WithBackoff sets the delays before retrying a page after a network failure and after being rate limited.
func WithBackoff(networkFailure, rateLimited time.Duration) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.networkBackoff = networkFailure
		c.rateLimitBackoff = rateLimited
	})
}

// WithMaxAttempts sets the number of failed attempts after which a page is abandoned. Zero means retry forever.
func WithMaxAttempts(n int) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.maxAttempts = n
	})
}

// WithDeduplication skips the pages that have already been discovered through another link.
func WithDeduplication(enabled bool) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.dedup = enabled
	})
}

// WithFootprint reports the resource usage and the queue lengths at debug level on every interval.
func WithFootprint(interval time.Duration) DivisionCrawlerOption {
	return divisionCrawlerOptionFunc(func(c *DivisionCrawler) {
		c.footprintInterval = interval
	})
}
