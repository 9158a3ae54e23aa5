package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"warbler/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("warbler-test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	rec := withRecorder(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Post("/messages/:id/like", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.SendStatus(fiber.StatusFound)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/messages/42/like", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /messages/:id/like", spans[0].Name())

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "/messages/:id/like", attrs["http.route"].AsString())
	assert.Equal(t, "/messages/42/like", attrs["url.path"].AsString())
	assert.Equal(t, int64(fiber.StatusFound), attrs["http.response.status_code"].AsInt64())
	assert.Equal(t, int64(7), attrs["warbler.user_id"].AsInt64())
}

func TestTracingMiddleware_ServerErrorStatus(t *testing.T) {
	rec := withRecorder(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/users/:id", func(c *fiber.Ctx) error {
		return fiber.ErrInternalServerError
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/3", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := spanAttrs(spans[0])
	assert.Equal(t, int64(fiber.StatusInternalServerError), attrs["http.response.status_code"].AsInt64())
	assert.True(t, attrs["warbler.anonymous"].AsBool())
}
