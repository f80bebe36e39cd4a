package cli

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/prcadmin/prcadmin/internal/store"
)

// DefaultURLTemplate is the url of the root page of the divisions of a year.
const DefaultURLTemplate = "http://www.stats.gov.cn/sj/tjbz/tjyqhdmhcxhfdm/%d/"

// VerbosityLevel is the verbosity level of the application.
type VerbosityLevel uint

const (
	// VerbosityLevelSilent is the silent verbosity level, a progress bar is shown instead of the logs.
	VerbosityLevelSilent VerbosityLevel = iota
	// VerbosityLevelWarn is the warning verbosity level.
	VerbosityLevelWarn
	// VerbosityLevelDebug is the debug verbosity level.
	VerbosityLevelDebug
)

// Config is the configuration of the application.
type Config struct {
	OutWriter io.Writer // The stream that will receive the summary of the crawl.
	ErrWriter io.Writer // The stream that will receive all the log messages, the progress and errors.

	Year       int    // The year of the divisions, used to build the root url when URL is empty.
	URL        string // The url of the root page.
	OutputFile string // The path of the output file.
	Format     string // The format of the output file: csv (default) or sqlite.

	NumWorkers        int           // The number of workers that the crawler could run.
	Timeout           time.Duration // The timeout of the http client of the crawler.
	NetworkBackoff    time.Duration // The delay before retrying a page that could not be fetched.
	RateLimitBackoff  time.Duration // The delay before retrying a page that has been rate limited.
	RateLimitMarker   string        // The text that marks a rate limited page. Empty disables the detection.
	MaxAttempts       int           // The number of failed attempts after which a page is abandoned. Zero means never.
	Deduplicate       bool          // Skip the pages that have already been discovered.
	RequestsPerSecond float64       // The maximum number of requests per second. Zero means unlimited.

	NoProgress     bool           // Disable the progress bar.
	JSONLog        bool           // Write the log messages as json lines.
	VerbosityLevel VerbosityLevel // The verbosity level of the tool.
}

// rootURL returns the url of the root page.
//
// nolint: goerr113 // Error will be printed out.
func (c Config) rootURL() (string, error) {
	root := c.URL

	if root == "" {
		if c.Year <= 0 {
			return "", errors.New("year or url is required")
		}

		root = fmt.Sprintf(DefaultURLTemplate, c.Year)
	}

	u, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: must be an absolute http or https url", root)
	}

	return root, nil
}

// validate checks the configuration and returns the root url and the output format.
//
// nolint: goerr113 // Error will be printed out.
func (c Config) validate() (string, store.Format, error) {
	root, err := c.rootURL()
	if err != nil {
		return "", "", err
	}

	format := store.FormatCSV

	if c.Format != "" {
		if format, err = store.ParseFormat(c.Format); err != nil {
			return "", "", err
		}
	}

	switch {
	case c.OutputFile == "":
		return "", "", errors.New("output file is required")

	case c.NumWorkers < 1:
		return "", "", errors.New("number of workers must be greater than 0")

	case c.Timeout < 0:
		return "", "", errors.New("timeout must not be negative")

	case c.NetworkBackoff < 0, c.RateLimitBackoff < 0:
		return "", "", errors.New("backoff must not be negative")

	case c.MaxAttempts < 0:
		return "", "", errors.New("max attempts must not be negative")

	case c.RequestsPerSecond < 0:
		return "", "", errors.New("requests per second must not be negative")
	}

	return root, format, nil
}
