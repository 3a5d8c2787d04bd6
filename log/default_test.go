package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownVerbosity(t *testing.T) {
	assert.Error(t, Init("loud"))
}

func TestSetLogger(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))

	Debug("dropped")
	Info("mined block", zap.Uint64("index", 1))
	Warn("chain invalid")

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "mined block", entry.Message)
	assert.Equal(t, uint64(1), entry.ContextMap()["index"])
}
