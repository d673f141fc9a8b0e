package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/testutil"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestSpanSuccess(t *testing.T) {
	rec := testutil.RecordSpans(t)

	_, span := StartSpan(context.Background(), "page.serialize")
	span.SetAttribute("positions", 42)
	span.SetAttribute("compression", "lz4")
	span.SetAttribute("compressed", true)
	span.End(nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "page.serialize", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, int64(42), attrs["positions"].AsInt64())
	assert.Equal(t, "lz4", attrs["compression"].AsString())
	assert.True(t, attrs["compressed"].AsBool())
}

func TestSpanError(t *testing.T) {
	rec := testutil.RecordSpans(t)

	_, span := StartSpan(context.Background(), "page.deserialize")
	span.End(errors.Corrupt("checksum mismatch"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "corrupt_data", attrMap(ended[0].Attributes())["error.type"].AsString())
	require.Len(t, ended[0].Events(), 1)
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracingStdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.SamplingRate = 1
	cfg.Writer = &buf

	shutdown, err := InitTracing(cfg)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "page.serialize")
	span.End(nil)
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "page.serialize")
	assert.Contains(t, buf.String(), "nebula-blocks")
}

func TestInitTracingRejectsExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
