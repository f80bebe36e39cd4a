package collector_test

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const baseURL = "http://www.stats.gov.cn/sj/tjbz/tjyqhdmhcxhfdm/2023/"

type errorReader struct {
	err error
}

func (e errorReader) Read([]byte) (int, error) {
	return 0, e.err
}

func newErrorReader(err error) errorReader {
	return errorReader{err: err}
}

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()

	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err, "could not open html fixture")

	t.Cleanup(func() {
		_ = f.Close() // nolint: errcheck
	})

	return f
}

func mustParseURL(t *testing.T, s string) *url.URL {
	t.Helper()

	u, err := url.Parse(s)
	require.NoError(t, err)

	return u
}
