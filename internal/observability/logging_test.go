package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	assert.True(t, NewLogger("production", "debug").Core().Enabled(zap.DebugLevel))
	assert.False(t, NewLogger("production", "warn").Core().Enabled(zap.InfoLevel))
	assert.True(t, NewLogger("development", "not-a-level").Core().Enabled(zap.InfoLevel))
	assert.False(t, NewLogger("development", "not-a-level").Core().Enabled(zap.DebugLevel))
}
