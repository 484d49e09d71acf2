package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jzx17/jobpoll/pkg/poll"
)

func TestNew(t *testing.T) {
	logger, err := New("debug")
	require.NoError(t, err)

	assert.True(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	var _ poll.Logger = logger
}

func TestNew_Levels(t *testing.T) {
	logger, err := New("warn")
	require.NoError(t, err)

	core := logger.Desugar().Core()
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("chatty")
	assert.ErrorContains(t, err, "invalid log level")
}
