package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_LevelAndFormat(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		level, format string
		wantLevel     slog.Level
		wantJSON      bool
	}{
		{level: "debug", format: "text", wantLevel: slog.LevelDebug},
		{level: "warn", format: "json", wantLevel: slog.LevelWarn, wantJSON: true},
		{level: "error", format: "text", wantLevel: slog.LevelError},
		{level: "", format: "", wantLevel: slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer

			logger := newLogger(tc.level, tc.format, &buf)
			logger.Log(context.Background(), tc.wantLevel, "node done", "node", "a")

			assert.True(t, logger.Enabled(context.Background(), tc.wantLevel))
			assert.False(t, logger.Enabled(context.Background(), tc.wantLevel-1))
			if tc.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"node done"`)
			} else {
				assert.Contains(t, buf.String(), "msg=\"node done\"")
			}
		})
	}
}

func TestNewLogger_LeavesDefaultAlone(t *testing.T) {
	t.Parallel()
	before := slog.Default()

	_ = newLogger("debug", "json", &bytes.Buffer{})

	assert.Same(t, before, slog.Default())
}
