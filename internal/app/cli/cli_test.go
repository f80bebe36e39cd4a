package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/nhatthm/httpmock"
	"github.com/stretchr/testify/require"
)

// Mock interfaces for testing.

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}

type safeBuffer struct {
	buffer bytes.Buffer
	mutex  sync.Mutex
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.Write(p) // nolint: wrapcheck
}

func (s *safeBuffer) String() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.String()
}

const (
	provincePage = `<table><tr class="provincetr"><td><a href="11.html">北京市<br/></a></td></tr></table>`
	cityPage     = `<table><tr class="citytr"><td><a href="11/1101.html">110100000000</a></td><td><a href="11/1101.html">市辖区</a></td></tr></table>`
	leafPage     = `<html><body><p>no division</p></body></html>`
)

// expectPage expects a request to a page of the site.
func expectPage(s *httpmock.Server, path, body string) {
	s.ExpectGet(path).
		ReturnHeader("Content-Type", "text/html; charset=utf-8").
		ReturnCode(httpmock.StatusOK).
		Return(body)
}

// divisionSite serves a province with a single city that has no county.
func divisionSite(s *httpmock.Server) {
	expectPage(s, "/2023/", provincePage)
	expectPage(s, "/2023/11.html", cityPage)
	expectPage(s, "/2023/11/1101.html", leafPage)
}

// readLines reads the lines of a file, the header first and the rest sorted.
func readLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(filepath.Clean(path))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	sort.Strings(lines[1:])

	return lines
}
