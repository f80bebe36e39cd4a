package collector

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed listing page that can be queried for rows.
type Document struct {
	doc *goquery.Document
}

// Rows returns all the rows matching the css selector, in document order.
func (d *Document) Rows(selector string) []Row {
	sel := d.doc.Find(selector)
	rows := make([]Row, 0, sel.Length())

	sel.Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, Row{sel: s})
	})

	return rows
}

// Row is a table row of a listing page.
type Row struct {
	sel *goquery.Selection
}

// Cells returns the cells of the row.
func (r Row) Cells() []Cell {
	sel := r.sel.Find("td")
	cells := make([]Cell, 0, sel.Length())

	sel.Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, Cell{sel: s})
	})

	return cells
}

// Cell is a table cell of a listing page.
type Cell struct {
	sel *goquery.Selection
}

// Text returns the visible text of the cell, trimmed.
func (c Cell) Text() string {
	return strings.TrimSpace(c.sel.Text())
}

// Link returns the target of the first anchor in the cell. It returns false if there is no anchor or the target is empty.
func (c Cell) Link() (string, bool) {
	href, ok := c.sel.Find("a").First().Attr("href")
	if !ok {
		return "", false
	}

	// In HTML, \n does not mean new line, browsers ignore it inside attribute values.
	href = strings.TrimSpace(strings.ReplaceAll(href, "\n", ""))

	return href, href != ""
}

// ParseDocument parses a listing page.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("could not parse html doc: %w", err)
	}

	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}
