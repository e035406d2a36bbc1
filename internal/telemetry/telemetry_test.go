package telemetry

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicore/internal/config"
	"aicore/internal/utils"
)

func TestInit_Disabled(t *testing.T) {
	logger := utils.NewLoggerWithWriter(io.Discard, "telemetry", utils.Info)

	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	shutdown, err = Init(context.Background(), config.TelemetryConfig{Enabled: true}, logger)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
