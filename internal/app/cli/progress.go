package cli

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/prcadmin/prcadmin/internal/crawler"
)

const progressThrottle = 100 * time.Millisecond

var _ crawler.Progress = (*progressBar)(nil)

// progressBar renders the number of scanned pages and saved records. The total is unknown, so it spins.
type progressBar struct {
	bar     *progressbar.ProgressBar
	out     io.Writer
	records atomic.Int64
}

// PageScanned implements crawler.Progress.
func (p *progressBar) PageScanned() {
	p.bar.Describe(fmt.Sprintf("crawling, %d records saved", p.records.Load()))

	_ = p.bar.Add(1) // nolint: errcheck
}

// RecordSaved implements crawler.Progress.
func (p *progressBar) RecordSaved() {
	p.records.Add(1)
}

// Finish renders the final state and moves to the next line.
func (p *progressBar) Finish() {
	p.bar.Describe(fmt.Sprintf("done, %d records saved", p.records.Load()))

	_ = p.bar.Finish() // nolint: errcheck

	_, _ = fmt.Fprintln(p.out)
}

func newProgressBar(out io.Writer) *progressBar {
	return &progressBar{
		out: out,
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("crawling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("pages"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(progressThrottle),
		),
	}
}
