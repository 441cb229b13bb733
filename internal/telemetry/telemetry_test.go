package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentverse/agentverse/config"
)

func TestInitDisabled(t *testing.T) {
	p, err := Init(config.TelemetryConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdownNil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdownRunsEveryHook(t *testing.T) {
	var ran []string
	p := &Providers{shutdowns: []func(context.Context) error{
		func(context.Context) error { ran = append(ran, "traces"); return nil },
		func(context.Context) error { ran = append(ran, "metrics"); return errors.New("flush failed") },
	}}

	err := p.Shutdown(context.Background())
	assert.ErrorContains(t, err, "flush failed")
	assert.Equal(t, []string{"traces", "metrics"}, ran)
}
