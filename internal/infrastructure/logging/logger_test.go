package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	dev := NewDevelopment()
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}

func TestScriptLoggerIsNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{Logger: zap.New(core)}

	l.Script().Debug("hello", zap.String("level", "info"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "script", entries[0].LoggerName)
	assert.Equal(t, "hello", entries[0].Message)
}
