package collector

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/prcadmin/prcadmin/internal/division"
)

var _ DivisionCollector = (*HTMLDivisionCollector)(nil)

// RowSelector returns the css selector of the rows that list divisions of a level.
type RowSelector func(level division.Level) string

// HTMLDivisionCollector collects divisions from the listing pages of the statistical division codes.
//
// Each page lists the divisions of a single level in rows tagged by a class such as `provincetr` or `citytr`. The levels
// are tried from the top of the tree to the bottom and the first one that has at least one row wins.
//
//	c := NewHTMLDivisionCollector()
//	page, err := c.Collect(r, source)
//	if err != nil {
//		return err
//	}
//
//	fmt.Println(page.Records, page.Children)
type HTMLDivisionCollector struct {
	rowSelector RowSelector
}

// Collect collects divisions and child pages from a listing page. Relative links are resolved against the source url.
//
// A page that has no division rows is a leaf and yields an empty Page. A row that misses the cells or links of its
// level makes the whole page fail with ErrMalformedRow.
func (c HTMLDivisionCollector) Collect(r io.Reader, source *url.URL) (Page, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return Page{}, err
	}

	for _, level := range division.Levels {
		rows := doc.Rows(c.rowSelector(level))
		if len(rows) == 0 {
			continue
		}

		if level == division.LevelProvince {
			return collectProvinces(rows, source)
		}

		return collectDivisions(level, rows, source)
	}

	return Page{}, nil
}

// collectProvinces reads province rows where every cell is a province linking to its own page.
func collectProvinces(rows []Row, source *url.URL) (Page, error) {
	page := newPage()

	for _, row := range rows {
		for _, cell := range row.Cells() {
			href, ok := cell.Link()
			if !ok {
				// Trailing cells of the last row are left empty for layout.
				if cell.Text() == "" {
					continue
				}

				return Page{}, fmt.Errorf("%w: province %q has no link", ErrMalformedRow, cell.Text())
			}

			link, err := resolveLink(source, href)
			if err != nil {
				return Page{}, err
			}

			page.Records = append(page.Records, division.Record{
				Code:  division.PadCode(provinceCode(link)),
				Name:  cell.Text(),
				Level: division.LevelProvince,
			})
			page.Children = append(page.Children, link.String())
		}
	}

	return page, nil
}

// collectDivisions reads rows where the first cell is the code and the last one is the name.
func collectDivisions(level division.Level, rows []Row, source *url.URL) (Page, error) {
	page := newPage()

	for _, row := range rows {
		cells := row.Cells()
		if len(cells) < 2 { // nolint: gomnd // At least the code and the name.
			return Page{}, fmt.Errorf("%w: %s row has %d cells", ErrMalformedRow, level, len(cells))
		}

		page.Records = append(page.Records, division.Record{
			Code:  cells[0].Text(),
			Name:  cells[len(cells)-1].Text(),
			Level: level,
		})

		// Rows of divisions without subdivisions have no link.
		href, ok := cells[0].Link()
		if !ok {
			continue
		}

		link, err := resolveLink(source, href)
		if err != nil {
			return Page{}, err
		}

		page.Children = append(page.Children, link.String())
	}

	return page, nil
}

func newPage() Page {
	return Page{
		Records:  make([]division.Record, 0, initialRowsCapacity),
		Children: make([]string, 0, initialRowsCapacity),
	}
}

func resolveLink(source *url.URL, href string) (*url.URL, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("%w: could not parse link %q: %s", ErrMalformedRow, href, err.Error())
	}

	return source.ResolveReference(u), nil
}

// provinceCode returns the file name of the province page without extension, e.g. `11` for `11.html`.
func provinceCode(link *url.URL) string {
	name := path.Base(link.Path)

	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}

	return name
}

// DefaultRowSelector selects the rows by the `<level>tr` class, e.g. `tr.countytr`.
func DefaultRowSelector(level division.Level) string {
	return "tr." + level.String() + "tr"
}

// NewHTMLDivisionCollector creates a new collector for the listing pages of the statistical division codes.
func NewHTMLDivisionCollector(opts ...HTMLDivisionCollectorOption) *HTMLDivisionCollector {
	c := &HTMLDivisionCollector{
		rowSelector: DefaultRowSelector,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HTMLDivisionCollectorOption is option to set up HTMLDivisionCollector.
type HTMLDivisionCollectorOption func(c *HTMLDivisionCollector)

// WithRowSelector sets the selector of the division rows of each level.
func WithRowSelector(s RowSelector) HTMLDivisionCollectorOption {
	return func(c *HTMLDivisionCollector) {
		c.rowSelector = s
	}
}
