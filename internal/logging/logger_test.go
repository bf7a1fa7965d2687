package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eshaffer321/tablebook-go/internal/types"
)

var _ types.Logger = (*Logger)(nil)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("err"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	l.Debug("API request", "method", "GET", "retried", false)
	l.Warn("Token refresh failed, session cleared", "rejected", 3)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "API request", entries[0].Message)
	assert.Equal(t, "GET", entries[0].ContextMap()["method"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 3, entries[1].ContextMap()["rejected"])
}

func TestNew(t *testing.T) {
	l, err := New(&Config{Level: "debug", Encoding: "json", ServiceName: "tablebook"})
	require.NoError(t, err)
	l.Info("ready")
	l.Sync()
}
