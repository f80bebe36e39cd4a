package collector_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prcadmin/prcadmin/internal/collector"
	"github.com/prcadmin/prcadmin/internal/division"
)

func TestHTMLDivisionCollector_Collect_Error(t *testing.T) {
	t.Parallel()

	c := collector.NewHTMLDivisionCollector()

	actual, err := c.Collect(newErrorReader(errors.New("random error")), mustParseURL(t, baseURL))

	assert.EqualError(t, err, "could not parse html doc: random error")
	assert.Empty(t, actual.Records)
	assert.Empty(t, actual.Children)
}

func TestHTMLDivisionCollector_Collect_Success(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario string
		fixture  string
		source   string
		expected collector.Page
	}{
		{
			scenario: "province",
			fixture:  "province.html",
			source:   baseURL,
			expected: collector.Page{
				Records: []division.Record{
					{Code: "110000000000", Name: "北京市", Level: division.LevelProvince},
					{Code: "120000000000", Name: "天津市", Level: division.LevelProvince},
				},
				Children: []string{
					baseURL + "11.html",
					baseURL + "12.html",
				},
			},
		},
		{
			scenario: "city",
			fixture:  "city.html",
			source:   baseURL + "11.html",
			expected: collector.Page{
				Records: []division.Record{
					{Code: "110100000000", Name: "市辖区", Level: division.LevelCity},
				},
				Children: []string{
					baseURL + "11/1101.html",
				},
			},
		},
		{
			scenario: "county with link-less rows",
			fixture:  "county.html",
			source:   baseURL + "11/1101.html",
			expected: collector.Page{
				Records: []division.Record{
					{Code: "110100000000", Name: "市辖区", Level: division.LevelCounty},
					{Code: "110101000000", Name: "东城区", Level: division.LevelCounty},
					{Code: "110102000000", Name: "西城区", Level: division.LevelCounty},
				},
				Children: []string{
					baseURL + "11/01/110101.html",
				},
			},
		},
		{
			scenario: "village",
			fixture:  "village.html",
			source:   baseURL + "11/01/01/110101001.html",
			expected: collector.Page{
				Records: []division.Record{
					{Code: "110101001001", Name: "多福巷社区居委会", Level: division.LevelVillage},
					{Code: "110101001002", Name: "银闸社区居委会", Level: division.LevelVillage},
				},
				Children: []string{},
			},
		},
		{
			scenario: "first matching level wins",
			fixture:  "mixed.html",
			source:   baseURL + "11/01/110101.html",
			expected: collector.Page{
				Records: []division.Record{
					{Code: "110101001000", Name: "东华门街道", Level: division.LevelTown},
				},
				Children: []string{
					baseURL + "11/01/01/110101001.html",
				},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			c := collector.NewHTMLDivisionCollector()

			actual, err := c.Collect(openFixture(t, tc.fixture), mustParseURL(t, tc.source))
			require.NoError(t, err)

			assert.Equal(t, tc.expected, actual)

			for _, r := range actual.Records {
				assert.Len(t, r.Code, division.CodeWidth)
			}
		})
	}
}

func TestHTMLDivisionCollector_Collect_Leaf(t *testing.T) {
	t.Parallel()

	c := collector.NewHTMLDivisionCollector()

	actual, err := c.Collect(openFixture(t, "leaf.html"), mustParseURL(t, baseURL+"11/01/01/01/110101001001.html"))
	require.NoError(t, err)

	assert.Empty(t, actual.Records)
	assert.Empty(t, actual.Children)
}

func TestHTMLDivisionCollector_Collect_Malformed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario      string
		body          string
		expectedError string
	}{
		{
			scenario:      "missing name cell",
			body:          `<table><tr class="citytr"><td>110100000000</td></tr></table>`,
			expectedError: "malformed row: city row has 1 cells",
		},
		{
			scenario:      "province without link",
			body:          `<table><tr class="provincetr"><td>北京市</td></tr></table>`,
			expectedError: `malformed row: province "北京市" has no link`,
		},
		{
			scenario:      "broken link",
			body:          `<table><tr class="towntr"><td><a href="http://%24">110101001000</a></td><td>东华门街道</td></tr></table>`,
			expectedError: `malformed row: could not parse link "http://%24"`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			c := collector.NewHTMLDivisionCollector()

			_, err := c.Collect(strings.NewReader(tc.body), mustParseURL(t, baseURL))

			require.Error(t, err)
			assert.ErrorIs(t, err, collector.ErrMalformedRow)
			assert.Contains(t, err.Error(), tc.expectedError)
		})
	}
}

func TestHTMLDivisionCollector_Collect_EmptyProvinceCells(t *testing.T) {
	t.Parallel()

	body := `<table><tr class="provincetr"><td><a href="65.html">新疆维吾尔自治区</a></td><td></td><td> </td></tr></table>`

	c := collector.NewHTMLDivisionCollector()

	actual, err := c.Collect(strings.NewReader(body), mustParseURL(t, baseURL))
	require.NoError(t, err)

	expected := collector.Page{
		Records: []division.Record{
			{Code: "650000000000", Name: "新疆维吾尔自治区", Level: division.LevelProvince},
		},
		Children: []string{baseURL + "65.html"},
	}

	assert.Equal(t, expected, actual)
}

func TestWithRowSelector(t *testing.T) {
	t.Parallel()

	body := `<table><tr data-level="city"><td><a href="11/1101.html">110100000000</a></td><td>市辖区</td></tr></table>`

	c := collector.NewHTMLDivisionCollector(
		collector.WithRowSelector(func(level division.Level) string {
			return `tr[data-level="` + level.String() + `"]`
		}),
	)

	actual, err := c.Collect(strings.NewReader(body), mustParseURL(t, baseURL+"11.html"))
	require.NoError(t, err)

	expected := collector.Page{
		Records: []division.Record{
			{Code: "110100000000", Name: "市辖区", Level: division.LevelCity},
		},
		Children: []string{baseURL + "11/1101.html"},
	}

	assert.Equal(t, expected, actual)
}
