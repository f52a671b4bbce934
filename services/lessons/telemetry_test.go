package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTelemetry_Disabled(t *testing.T) {
	// Act
	shutdown, err := setupTelemetry(context.Background(), TelemetryConfig{Enabled: false})

	// Assert
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
}
