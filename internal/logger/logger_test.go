//go:build !testsignal

package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/bool64/ctxd"
	"github.com/stretchr/testify/assert"

	"github.com/prcadmin/prcadmin/internal/logger"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario    string
		level       logger.Level
		expected    []string
		notExpected []string
	}{
		{
			scenario:    "error",
			level:       logger.ErrorLevel,
			expected:    []string{"page is malformed"},
			notExpected: []string{"visiting page", "crawling", "too fast"},
		},
		{
			scenario:    "warn",
			level:       logger.WarnLevel,
			expected:    []string{"page is malformed", "too fast"},
			notExpected: []string{"visiting page", "crawling"},
		},
		{
			scenario:    "debug",
			level:       logger.DebugLevel,
			expected:    []string{"page is malformed", "too fast", "crawling", "visiting page"},
			notExpected: []string{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			buf := new(bytes.Buffer)

			l := logger.NewLogger(logger.Config{
				Output:    buf,
				Level:     tc.level,
				StripTime: true,
			})

			ctx := ctxd.AddFields(context.Background(), "key", "value")

			l.Debug(ctx, "visiting page")
			l.Info(ctx, "crawling")
			l.Warn(ctx, "too fast")
			l.Error(ctx, "page is malformed", "key2", "value2")

			for _, msg := range tc.expected {
				assert.Contains(t, buf.String(), msg)
			}

			for _, msg := range tc.notExpected {
				assert.NotContains(t, buf.String(), msg)
			}

			assert.Contains(t, buf.String(), `page is malformed	{"key2": "value2", "key": "value"}`)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	l := logger.NewLogger(logger.Config{
		Output:    buf,
		Level:     logger.InfoLevel,
		StripTime: true,
		JSON:      true,
	})

	l.Info(context.Background(), "finished crawling", "crawler.pages_scanned", 3)

	assert.Contains(t, buf.String(), `"message":"finished crawling"`)
	assert.Contains(t, buf.String(), `"crawler.pages_scanned":3`)
}
