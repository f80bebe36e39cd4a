package crawler

import "sync/atomic"

var (
	_ Progress = (*Counters)(nil)
	_ Progress = NoOpProgress{}
)

// Progress observes the crawl. It must not block.
type Progress interface {
	// PageScanned is called after a page has been fetched and its divisions and links published.
	PageScanned()
	// RecordSaved is called after a record has been written to the output.
	RecordSaved()
}

// Counters counts the scanned pages and the saved records. It is safe for concurrent use.
type Counters struct {
	pages   atomic.Int64
	records atomic.Int64
}

// PageScanned implements Progress.
func (c *Counters) PageScanned() {
	c.pages.Add(1)
}

// RecordSaved implements Progress.
func (c *Counters) RecordSaved() {
	c.records.Add(1)
}

// PagesScanned returns the number of scanned pages.
func (c *Counters) PagesScanned() int64 {
	return c.pages.Load()
}

// RecordsSaved returns the number of saved records.
func (c *Counters) RecordsSaved() int64 {
	return c.records.Load()
}

// NoOpProgress discards the progress.
type NoOpProgress struct{}

// PageScanned implements Progress.
func (NoOpProgress) PageScanned() {}

// RecordSaved implements Progress.
func (NoOpProgress) RecordSaved() {}
