package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

const (
	// ErrInvalidCSV indicates that the input could not be read as csv.
	ErrInvalidCSV = Error("invalid csv")
	// ErrNoCodeColumn indicates that the csv file has no code column.
	ErrNoCodeColumn = Error("missing code column")
)

// SortCSV reads a csv file with a header row and writes the same rows sorted by code, ascending. Rows with the same
// code keep their order.
func SortCSV(in io.Reader, out io.Writer) error {
	rows, err := ReadSortedCSV(in)
	if err != nil {
		return err
	}

	return WriteCSV(out, rows)
}

// ReadSortedCSV reads a whole csv file with a header row and returns its rows sorted by code, ascending, header first.
// Codes made of digits only come first, compared by value, the others follow in lexical order. Rows with the same code
// keep their order.
func ReadSortedCSV(in io.Reader) ([][]string, error) {
	rows, err := csv.NewReader(in).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrNoCodeColumn)
	}

	col := -1

	for i, name := range rows[0] {
		if name == header[0] {
			col = i

			break
		}
	}

	if col < 0 {
		return nil, ErrNoCodeColumn
	}

	body := rows[1:]

	sort.SliceStable(body, func(i, j int) bool {
		return lessCode(body[i][col], body[j][col])
	})

	return rows, nil
}

// WriteCSV writes the rows to the output.
func WriteCSV(out io.Writer, rows [][]string) error {
	if err := csv.NewWriter(out).WriteAll(rows); err != nil {
		return fmt.Errorf("could not write csv: %w", err)
	}

	return nil
}

func lessCode(a, b string) bool {
	x, xErr := strconv.ParseUint(a, 10, 64)
	y, yErr := strconv.ParseUint(b, 10, 64)

	switch {
	case xErr == nil && yErr == nil:
		return x < y

	case xErr == nil || yErr == nil:
		return xErr == nil
	}

	return a < b
}
