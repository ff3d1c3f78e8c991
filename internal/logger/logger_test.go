package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf)

	e := &log.Entry{
		Level:     log.InfoLevel,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Message:   "cache refreshed",
		Fields:    log.Fields{"size": 42},
	}
	require.NoError(t, h.HandleLog(e))

	assert.Equal(t, "2024-05-01 12:00:00 I cache refreshed size=42\n", buf.String())
}

func TestHandlerSortsFields(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf)

	e := &log.Entry{
		Level:     log.WarnLevel,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Message:   "refresh failed",
		Fields:    log.Fields{"url": "http://x", "attempt": 2},
	}
	require.NoError(t, h.HandleLog(e))

	assert.Equal(t, "2024-05-01 12:00:00 W refresh failed attempt=2 url=http://x\n", buf.String())
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	t.Setenv(EnvLogFile, "")

	t.Run("argument", func(t *testing.T) {
		t.Setenv(EnvLevel, "")
		require.NoError(t, Init("warn"))

		err := Init("loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"loud"`)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvLevel, "loud")
		assert.Error(t, Init("info"), "a bad env level must not be masked by a valid argument")
	})
}
