package store_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prcadmin/prcadmin/internal/store"
)

func TestSortCSV(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario      string
		input         string
		expected      string
		expectedError string
	}{
		{
			scenario: "crawl output",
			input: `code,name,level
120000000000,天津市,province
110101000000,东城区,county
110000000000,北京市,province
110100000000,市辖区,city
`,
			expected: `code,name,level
110000000000,北京市,province
110100000000,市辖区,city
110101000000,东城区,county
120000000000,天津市,province
`,
		},
		{
			scenario: "duplicates keep their order",
			input: `code,name,level
2,b,city
1,first,city
1,second,city
`,
			expected: `code,name,level
1,first,city
1,second,city
2,b,city
`,
		},
		{
			scenario: "codes compared by value",
			input: `name,code
ten,10
nine,9
`,
			expected: `name,code
nine,9
ten,10
`,
		},
		{
			scenario: "digit codes before the others",
			input: `code
1x
10
2
`,
			expected: `code
2
10
1x
`,
		},
		{
			scenario: "order does not depend on the input",
			input: `code
10
1x
2
`,
			expected: `code
2
10
1x
`,
		},
		{
			scenario: "header only",
			input:    "code,name,level\n",
			expected: "code,name,level\n",
		},
		{
			scenario:      "empty",
			input:         "",
			expectedError: "missing code column: empty input",
		},
		{
			scenario:      "no code column",
			input:         "name,level\na,city\n",
			expectedError: "missing code column",
		},
		{
			scenario:      "malformed",
			input:         "code,name,level\n1,a\n",
			expectedError: "invalid csv: record on line 2: wrong number of fields",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			out := new(bytes.Buffer)

			err := store.SortCSV(strings.NewReader(tc.input), out)

			if tc.expectedError == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, out.String())
			} else {
				assert.EqualError(t, err, tc.expectedError)
			}
		})
	}
}

func TestSortCSV_WriteError(t *testing.T) {
	t.Parallel()

	err := store.SortCSV(strings.NewReader("code\n2\n1\n"), writerFunc(func([]byte) (int, error) {
		return 0, errWrite
	}))

	assert.ErrorIs(t, err, errWrite)
	assert.NotErrorIs(t, err, store.ErrInvalidCSV)
	assert.EqualError(t, err, "could not write csv: write error")
}
