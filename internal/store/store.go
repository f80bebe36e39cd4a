package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/prcadmin/prcadmin/internal/division"
)

const (
	// ErrUnknownFormat indicates that the output format is not supported.
	ErrUnknownFormat = Error("unknown output format")
)

// Format is the format of the output file.
type Format string

const (
	// FormatCSV writes the divisions as comma separated values with a header row.
	FormatCSV Format = "csv"
	// FormatSQLite writes the divisions to the divisions table of a sqlite database.
	FormatSQLite Format = "sqlite"
)

var header = []string{"code", "name", "level"}

// Writer persists the divisions, one row per record, in the order they are written.
type Writer interface {
	WriteRecord(ctx context.Context, r division.Record) error
	Close() error
}

// ParseFormat parses the name of an output format, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatSQLite:
		return f, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Open creates the output file and returns a Writer for the given format. An existing file is overwritten.
func Open(ctx context.Context, format Format, path string) (Writer, error) {
	var (
		w   Writer
		err error
	)

	switch format {
	case FormatCSV:
		w, err = CreateCSVFile(path)

	case FormatSQLite:
		w, err = OpenSQLite(ctx, path)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err != nil {
		return nil, err
	}

	return w, nil
}

// row returns the columns of a record, with the code and the name trimmed.
func row(r division.Record) []string {
	return []string{strings.TrimSpace(r.Code), strings.TrimSpace(r.Name), r.Level.String()}
}
