package crawler_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prcadmin/prcadmin/internal/crawler"
	"github.com/prcadmin/prcadmin/internal/division"
)

func contextWithDeadline(t *testing.T, d time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	deadline, ok := t.Deadline()
	if !ok {
		deadline = time.Now().Add(d)
	}

	return context.WithDeadline(context.Background(), deadline)
}

// fakeClock records the backoff delays and returns almost immediately.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-time.After(time.Millisecond): // Yield, so a retry loop does not spin.
		return nil
	}
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)

	return result
}

// recordWriter collects the records in memory.
type recordWriter struct {
	mu      sync.Mutex
	records []division.Record
	err     error
}

func (w *recordWriter) WriteRecord(_ context.Context, r division.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	w.records = append(w.records, r)

	return nil
}

func (w *recordWriter) Records() []division.Record {
	w.mu.Lock()
	defer w.mu.Unlock()

	result := make([]division.Record, len(w.records))
	copy(result, w.records)

	return result
}

func (w *recordWriter) SortedCodes() []string {
	records := w.Records()
	codes := make([]string, 0, len(records))

	for _, r := range records {
		codes = append(codes, r.Code)
	}

	sort.Strings(codes)

	return codes
}

// fetchCounter counts the fetches per url.
type fetchCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *fetchCounter) Inc(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts == nil {
		c.counts = make(map[string]int)
	}

	c.counts[source]++

	return c.counts[source]
}

func (c *fetchCounter) Get(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[source]
}

func (c *fetchCounter) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int, len(c.counts))

	for k, v := range c.counts {
		result[k] = v
	}

	return result
}

// treeSite serves a synthetic division tree: every page at depth d < depth lists `branching` divisions of the next level,
// each linking to its own page. Pages at the last depth have no division.
type treeSite struct {
	host      string
	depth     int
	branching int
}

func (s treeSite) root() string {
	return s.host + "/r.html"
}

func (s treeSite) fetch(source string) crawler.FetchResult {
	name := strings.TrimSuffix(strings.TrimPrefix(source, s.host+"/"), ".html")
	path := strings.TrimPrefix(name, "r")
	depth := len(path)

	if depth >= s.depth {
		return crawler.FetchResult{Outcome: crawler.OutcomeBody, Body: `<html><body><p>leaf</p></body></html>`}
	}

	level := division.Levels[depth+1]

	var b strings.Builder

	b.WriteString("<table>")

	for i := 0; i < s.branching; i++ {
		child := fmt.Sprintf("%s%d", path, i)
		code := division.PadCode(fmt.Sprintf("9%s", child))

		_, _ = fmt.Fprintf(&b, `<tr class="%str"><td><a href="r%s.html">%s</a></td><td>%s</td></tr>`, level, child, code, "n"+child)
	}

	b.WriteString("</table>")

	return crawler.FetchResult{Outcome: crawler.OutcomeBody, Body: b.String()}
}

// numPages returns the number of pages of the tree, including the root and the leaves.
func (s treeSite) numPages() int {
	total, width := 0, 1

	for d := 0; d <= s.depth; d++ {
		total += width
		width *= s.branching
	}

	return total
}

// numRecords returns the number of divisions listed in the tree.
func (s treeSite) numRecords() int {
	return s.numPages() - 1
}
