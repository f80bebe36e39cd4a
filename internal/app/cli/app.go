package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bool64/ctxd"
	"github.com/google/uuid"

	"github.com/prcadmin/prcadmin/internal/crawler"
	"github.com/prcadmin/prcadmin/internal/division"
	"github.com/prcadmin/prcadmin/internal/footprint"
	"github.com/prcadmin/prcadmin/internal/logger"
	"github.com/prcadmin/prcadmin/internal/store"
)

const (
	// CodeOK indicates that the program exited with success.
	CodeOK = ExitCode(iota)
	// CodeErrOperationCanceled indicates that the program has been terminated and operation is canceled.
	CodeErrOperationCanceled
	// CodeErrBadArgs indicates that the provided arguments are invalid.
	CodeErrBadArgs
	// CodeErrOutput indicates that the program could not write to output.
	CodeErrOutput
	// CodeErrCrawl indicates that the crawl stopped because a page could not be understood.
	CodeErrCrawl
	// CodeErrInput indicates that the program could not read its input file.
	CodeErrInput
)

// ExitCode is the exit code of the program.
type ExitCode int

// Run crawls the division tree from the root page and writes every division to the output file.
//
// In case of SIGINT or SIGTERM, the crawl is stopped, the rows written so far are kept and the function returns
// CodeErrOperationCanceled. The summary of the crawl is printed to the output writer whatever happened.
func Run(cfg Config) ExitCode {
	root, format, err := cfg.validate()
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return CodeErrBadArgs
	}

	runID := uuid.NewString()
	log := initLogger(cfg.VerbosityLevel, cfg.JSONLog, cfg.ErrWriter)
	ctx := ctxd.AddFields(context.Background(), "crawler.run_id", runID)

	w, err := store.Open(ctx, format, cfg.OutputFile)
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return CodeErrOutput
	}

	var (
		progress       crawler.Progress = crawler.NoOpProgress{}
		finishProgress                  = func() {}
	)

	if cfg.VerbosityLevel == VerbosityLevelSilent && !cfg.NoProgress {
		bar := newProgressBar(cfg.ErrWriter)

		progress, finishProgress = bar, bar.Finish
	}

	c := initCrawler(cfg, log, progress)

	report, code, err := doCrawl(ctx, c, root, outputWriter{w}, log)

	finishProgress()

	switch {
	case code == CodeErrOperationCanceled:
		_, _ = fmt.Fprintln(cfg.ErrWriter, "operation canceled")

	case err != nil:
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())
	}

	if err := w.Close(); err != nil {
		log.Error(ctx, "failed to close output", "error", err)

		if code == CodeOK {
			_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

			code = CodeErrOutput
		}
	}

	if err := writeSummary(cfg.OutWriter, runID, cfg.OutputFile, report); err != nil && code == CodeOK {
		code = CodeErrOutput
	}

	return code
}

// initLogger returns a new logger.
//
// If the verbosity level is silent, all the log messages will be discarded by sending them to io.Discard.
// Otherwise, the logger will write to the stderr writer.
//
// Then the verbosity level is
// - VerbosityLevelWarn, the log level will be set to logger.WarnLevel.
// - VerbosityLevelDebug, the log level will be set to logger.DebugLevel.
func initLogger(level VerbosityLevel, jsonLog bool, errWriter io.Writer) ctxd.Logger {
	logCfg := logger.Config{
		Output: io.Discard,
		Level:  logger.ErrorLevel,
		JSON:   jsonLog,
	}

	if level > VerbosityLevelSilent {
		logCfg.Output = errWriter
		logCfg.Level = logger.WarnLevel
	}

	if level > VerbosityLevelWarn {
		logCfg.Level = logger.DebugLevel
	}

	return logger.NewLogger(logCfg)
}

// initCrawler initiates a new crawler.DivisionCrawler from the configuration.
func initCrawler(cfg Config, log ctxd.Logger, progress crawler.Progress) *crawler.DivisionCrawler {
	opts := []crawler.DivisionCrawlerOption{
		crawler.WithLogger(log),
		crawler.WithProgress(progress),
		crawler.WithNumWorkers(cfg.NumWorkers),
		crawler.WithBackoff(cfg.NetworkBackoff, cfg.RateLimitBackoff),
		crawler.WithMaxAttempts(cfg.MaxAttempts),
		crawler.WithDeduplication(cfg.Deduplicate),
		crawler.WithFetcher(crawler.NewHTTPFetcher(
			crawler.WithFetcherLogger(log),
			crawler.WithClientTimeout(cfg.Timeout),
			crawler.WithRateLimitMarker(cfg.RateLimitMarker),
			crawler.WithRequestsPerSecond(cfg.RequestsPerSecond),
		)),
	}

	if cfg.VerbosityLevel >= VerbosityLevelDebug {
		opts = append(opts, crawler.WithFootprint(footprint.DefaultInterval))
	}

	return crawler.NewDivisionCrawler(opts...)
}

// doCrawl crawls from the root page and writes the divisions to the writer.
//
// In case of SIGINT or SIGTERM, the crawler will be gracefully stopped and the function will return CodeErrOperationCanceled.
// In case of output error, the function will return CodeErrOutput. Any other error is a CodeErrCrawl.
func doCrawl(ctx context.Context, c *crawler.DivisionCrawler, root string, w crawler.RecordWriter, log ctxd.Logger) (crawler.Report, ExitCode, error) {
	ctx, cancel := context.WithCancel(ctx)

	code := CodeOK
	codeMu := &sync.Mutex{}
	sigs := make(chan os.Signal, 1)

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	var (
		wg       sync.WaitGroup
		report   crawler.Report
		crawlErr error
	)

	wg.Add(2) // nolint: gomnd // WaitGroup is used to wait for goroutines to finish.

	go func() { // Watch for termination to cancel the context in order to signal all the workers to stop.
		defer wg.Done()
		defer signal.Stop(sigs)

		select {
		case <-sigs:
			codeMu.Lock()
			code = CodeErrOperationCanceled
			codeMu.Unlock()

			log.Warn(ctx, "received termination signal, stopping")

			cancel()
		case <-ctx.Done():
			return
		}
	}()

	go func() {
		defer wg.Done()
		defer cancel()

		report, crawlErr = c.Crawl(ctx, root, w)
		if crawlErr == nil {
			return
		}

		codeMu.Lock()
		defer codeMu.Unlock()

		if code == CodeErrOperationCanceled {
			return
		}

		if errors.Is(crawlErr, ErrOutput) {
			code = CodeErrOutput
		} else {
			code = CodeErrCrawl
		}
	}()

	wg.Wait()

	return report, code, crawlErr
}

// outputWriter marks the errors of the output, so that they are told apart from the crawl errors.
type outputWriter struct {
	store.Writer
}

func (w outputWriter) WriteRecord(ctx context.Context, r division.Record) error {
	if err := w.Writer.WriteRecord(ctx, r); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}

	return nil
}

// writeSummary prints the outcome of the crawl.
func writeSummary(out io.Writer, runID, outputFile string, report crawler.Report) error {
	_, err := fmt.Fprintf(out, "run id: %s\npages scanned: %d\nrecords saved: %d\noutput: %s\n",
		runID, report.PagesScanned, report.RecordsSaved, outputFile,
	)
	if err != nil {
		return fmt.Errorf("could not write summary: %w", err)
	}

	for _, source := range report.Abandoned {
		if _, err := fmt.Fprintf(out, "abandoned: %s\n", source); err != nil {
			return fmt.Errorf("could not write summary: %w", err)
		}
	}

	return nil
}
