package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "warbler-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestInitTracing_Stdout(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "warbler-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 1.0,
	})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	span, ctx := StartServiceSpan(context.Background(), "follow", "Follow")
	require.NotNil(t, ctx)
	span.SetError(errors.New("boom"))
	span.End()
	assert.NotEmpty(t, span.TraceID())
	assert.NotEmpty(t, span.SpanID())
}

func TestDatabaseMetrics_TrackQuery(t *testing.T) {
	done := NewDatabaseMetrics("users").TrackQuery("select")
	assert.NotPanics(t, done)
}
