package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prcadmin/prcadmin/internal/division"
)

var _ Writer = (*CSVWriter)(nil)

// CSVWriter writes the divisions as csv rows: code, name, level.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// WriteRecord writes a row and flushes it, so that the file is consistent whenever the crawl stops.
func (w *CSVWriter) WriteRecord(_ context.Context, r division.Record) error {
	if err := w.w.Write(row(r)); err != nil {
		return fmt.Errorf("could not write csv row: %w", err)
	}

	w.w.Flush()

	if err := w.w.Error(); err != nil {
		return fmt.Errorf("could not flush csv row: %w", err)
	}

	return nil
}

// Close flushes the remaining rows and closes the underlying file, if any.
func (w *CSVWriter) Close() error {
	w.w.Flush()

	err := w.w.Error()

	if w.closer != nil {
		if cErr := w.closer.Close(); err == nil {
			err = cErr
		}
	}

	if err != nil {
		return fmt.Errorf("could not close csv writer: %w", err)
	}

	return nil
}

// NewCSVWriter writes the header to w and returns a CSVWriter. If w is an io.Closer, it is closed with the CSVWriter.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}

	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}

	if err := cw.w.Write(header); err != nil {
		return nil, fmt.Errorf("could not write csv header: %w", err)
	}

	cw.w.Flush()

	if err := cw.w.Error(); err != nil {
		return nil, fmt.Errorf("could not write csv header: %w", err)
	}

	return cw, nil
}

// CreateCSVFile creates or truncates the file and returns a CSVWriter to it.
func CreateCSVFile(path string) (*CSVWriter, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("could not create output file: %w", err)
	}

	w, err := NewCSVWriter(f)
	if err != nil {
		_ = f.Close() // nolint: errcheck

		return nil, err
	}

	return w, nil
}
