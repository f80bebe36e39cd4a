package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prcadmin/prcadmin/internal/store"
)

const outputFileMode = 0o644

// SortConfig is the configuration of the sort command.
type SortConfig struct {
	ErrWriter io.Writer // The stream that will receive the errors.

	InputFile  string // The csv file written by a crawl.
	OutputFile string // The sorted csv file.
}

// Sort sorts the rows of a csv file by division code.
//
// The input is read as a whole before the output is written, the output replaces its file only once it is complete.
// So the input and the output may be the same file.
func Sort(cfg SortConfig) ExitCode {
	printErr := func(err error) {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())
	}

	if cfg.InputFile == "" || cfg.OutputFile == "" {
		printErr(errors.New("input and output files are required")) // nolint: goerr113 // Error will be printed out.

		return CodeErrBadArgs
	}

	rows, err := readSortedCSV(filepath.Clean(cfg.InputFile))
	if err != nil {
		printErr(err)

		return CodeErrInput
	}

	if err := writeCSVFile(filepath.Clean(cfg.OutputFile), rows); err != nil {
		printErr(err)

		return CodeErrOutput
	}

	return CodeOK
}

func readSortedCSV(path string) ([][]string, error) {
	in, err := os.Open(path) // nolint: gosec // The path is given by the user.
	if err != nil {
		return nil, fmt.Errorf("could not open input file: %w", err)
	}

	defer in.Close() // nolint: errcheck

	return store.ReadSortedCSV(in)
}

// writeCSVFile writes the rows to a temporary file next to the output, then renames it over the output.
func writeCSVFile(path string, rows [][]string) (err error) {
	out, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(out.Name())
		}
	}()

	if err := store.WriteCSV(out, rows); err != nil {
		return err
	}

	if err := out.Chmod(outputFileMode); err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}

	if err := os.Rename(out.Name(), path); err != nil {
		return fmt.Errorf("could not replace output file: %w", err)
	}

	return nil
}
