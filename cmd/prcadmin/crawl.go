package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prcadmin/prcadmin/internal/app/cli"
	"github.com/prcadmin/prcadmin/internal/crawler"
	"github.com/prcadmin/prcadmin/internal/store"
)

// defaultTimeout is the default timeout for requesting a page.
const defaultTimeout = 30 * time.Second

func newCrawlCmd(v *viper.Viper, out, errW io.Writer, code *cli.ExitCode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the divisions of a year and save them to a file",
		Example: `  Save the divisions of 2023 to a csv file:
    prcadmin crawl -y 2023 -f divisions.csv

  Save them to a sqlite database with 10 workers, printing the warnings:
    prcadmin crawl -y 2023 -f divisions.db --format sqlite --ntasks 10 -v

  Crawl a mirror:
    prcadmin crawl --url http://localhost:8080/2023/ -f divisions.csv`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			*code = cli.Run(crawlConfig(v, out, errW))

			return nil
		},
	}

	f := cmd.Flags()

	f.IntP("year", "y", 0, "year of the divisions")
	f.String("url", "", "url of the root page, overrides the year")
	f.StringP("file", "f", "", "path of the output file")
	f.String("format", string(store.FormatCSV), "format of the output file: csv or sqlite")
	f.Int("ntasks", crawler.DefaultNumWorkers, "number of workers crawling concurrently")
	f.Duration("timeout", defaultTimeout, "timeout for requesting a page")
	f.Duration("network-backoff", crawler.DefaultNetworkBackoff, "delay before retrying a page that could not be fetched")
	f.Duration("rate-limit-backoff", crawler.DefaultRateLimitBackoff, "delay before retrying a rate limited page")
	f.String("rate-limit-marker", crawler.DefaultRateLimitMarker, "text that marks a rate limited page, empty disables the detection")
	f.Int("max-attempts", 0, "number of failed attempts after which a page is abandoned, 0 retries forever")
	f.Bool("dedup", false, "skip the pages that have already been discovered")
	f.Float64("rps", 0, "maximum number of requests per second, 0 is unlimited")
	f.Bool("no-progress", false, "hide the progress bar, it counts the pages scanned successfully and the records saved")
	f.Bool("log-json", false, "write the log messages as json lines")
	f.CountP("verbose", "v", "print the warnings (-v) or all the log messages (-vv)")

	return cmd
}

func crawlConfig(v *viper.Viper, out, errW io.Writer) cli.Config {
	verbosity := cli.VerbosityLevel(min(max(v.GetInt("verbose"), 0), int(cli.VerbosityLevelDebug)))

	return cli.Config{
		OutWriter:         out,
		ErrWriter:         errW,
		Year:              v.GetInt("year"),
		URL:               v.GetString("url"),
		OutputFile:        v.GetString("file"),
		Format:            v.GetString("format"),
		NumWorkers:        v.GetInt("ntasks"),
		Timeout:           v.GetDuration("timeout"),
		NetworkBackoff:    v.GetDuration("network-backoff"),
		RateLimitBackoff:  v.GetDuration("rate-limit-backoff"),
		RateLimitMarker:   v.GetString("rate-limit-marker"),
		MaxAttempts:       v.GetInt("max-attempts"),
		Deduplicate:       v.GetBool("dedup"),
		RequestsPerSecond: v.GetFloat64("rps"),
		NoProgress:        v.GetBool("no-progress"),
		JSONLog:           v.GetBool("log-json"),
		VerbosityLevel:    verbosity,
	}
}
