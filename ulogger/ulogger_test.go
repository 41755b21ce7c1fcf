package ulogger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsZeroLoggerByDefault(t *testing.T) {
	logger := New("test-service")
	require.NotNil(t, logger)

	_, ok := logger.(*ZLoggerWrapper)
	assert.True(t, ok, "expected default logger to be a ZLoggerWrapper")
}

func TestNewGoCoreLoggerType(t *testing.T) {
	logger := New("test-service", WithLoggerType("gocore"))
	require.NotNil(t, logger)

	_, ok := logger.(*GoCoreLogger)
	assert.True(t, ok)
}

func TestZeroLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := NewZeroLogger("test", WithWriter(&buf), WithLevel("WARN"))

	assert.Equal(t, "warn", logger.GetLevel().String())

	logger.SetLogLevel("DEBUG")
	assert.Equal(t, "debug", logger.GetLevel().String())

	logger.SetLogLevel("bogus")
	assert.Equal(t, "info", logger.GetLevel().String())
}

func TestZeroLoggerNewInheritsLevel(t *testing.T) {
	var buf bytes.Buffer

	parent := NewZeroLogger("parent", WithWriter(&buf), WithLevel("ERROR"))
	child := parent.New("child")

	require.NotNil(t, child)
	assert.Equal(t, parent.LogLevel(), child.LogLevel())
}

func TestVerboseTestLogger(t *testing.T) {
	logger := NewVerboseTestLogger(t)

	logger.Debugf("debug %s", "message")
	logger.Infof("info %d", 42)
	logger.Warnf("warn")
	logger.Errorf("error, does not fail the test")

	assert.Same(t, logger, logger.New("other"))
	assert.Same(t, logger, logger.Duplicate())
}
