package collector

import (
	"io"
	"net/url"

	"github.com/prcadmin/prcadmin/internal/division"
)

const (
	// ErrMalformedRow indicates that a row matched a level but does not have the expected cells or links.
	ErrMalformedRow = Error("malformed row")
)

// initialRowsCapacity is the initial capacity of the records slice. A listing page rarely has more rows than this.
const initialRowsCapacity = 32

// Page is what has been found on a listing page.
type Page struct {
	// Records are the divisions listed on the page, all of the same level.
	Records []division.Record
	// Children are the absolute urls of the pages to visit next.
	Children []string
}

// DivisionCollector collects divisions and child pages from a reader of a listing page.
type DivisionCollector interface {
	Collect(r io.Reader, source *url.URL) (Page, error)
}
