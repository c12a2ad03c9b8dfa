package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracingWithoutExporter(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{
		ServiceName: "test",
		Exporter:    "none",
	})
	require.NoError(t, err)
	require.NotNil(t, tp.Tracer())

	_, span := tp.Tracer().Start(context.Background(), "op")
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestInitTracingUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{
		ServiceName: "test",
		Exporter:    "carrier-pigeon",
	})
	assert.Error(t, err)
}
