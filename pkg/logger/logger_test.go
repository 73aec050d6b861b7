package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type traceKey struct{}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "cartflow", func(ctx context.Context) string {
		id, _ := ctx.Value(traceKey{}).(string)
		return id
	})

	ctx := context.WithValue(context.Background(), traceKey{}, "abc123")
	log.Info(ctx, "cart saved", "items", 2)
	require.NoError(t, log.Sync())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "cart saved", rec["msg"])
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "cartflow", rec["service"])
	assert.Equal(t, "abc123", rec["trace_id"])
	assert.Equal(t, float64(2), rec["items"])
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "cartflow", nil)
	log.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())
	log.Warn(context.Background(), "kept")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("loud"))
}

func TestLoggerLevelMethods(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "cartflow", nil)
	ctx := context.Background()
	log.Debug(ctx, "d")
	log.Info(ctx, "i")
	log.Warn(ctx, "w")
	log.Error(ctx, "e")
	require.NoError(t, log.Sync())

	var levels []string
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		levels = append(levels, rec["level"].(string))
	}
	assert.Equal(t, []string{"debug", "info", "warn", "error"}, levels)
}
