package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/prcadmin/prcadmin/internal/app/cli"
)

func newSortCmd(errW io.Writer, code *cli.ExitCode) *cobra.Command {
	return &cobra.Command{
		Use:     "sort INPUT OUTPUT",
		Short:   "Sort a crawled csv file by division code",
		Long:    "Sort a crawled csv file by division code. INPUT and OUTPUT may be the same file.",
		Example: "  prcadmin sort divisions.csv divisions-sorted.csv",
		Args:    cobra.ExactArgs(2), // nolint: gomnd
		RunE: func(_ *cobra.Command, args []string) error {
			*code = cli.Sort(cli.SortConfig{
				ErrWriter:  errW,
				InputFile:  args[0],
				OutputFile: args[1],
			})

			return nil
		},
	}
}
