package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tbourn/go-story-backend/internal/config"
)

func enabledCfg() config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "story-backend-test",
		SampleRatio: 1,
	}
}

// memoryExporter swaps the OTLP exporter for an in-memory one and restores
// the tracing globals afterwards.
func memoryExporter(t *testing.T) (*tracetest.InMemoryExporter, *int) {
	t.Helper()
	prevTP, prevProp, prevExp := otel.GetTracerProvider(), otel.GetTextMapPropagator(), newExporter
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		newExporter = prevExp
	})

	mem := tracetest.NewInMemoryExporter()
	nOpts := new(int)
	newExporter = func(_ context.Context, opts ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		*nOpts = len(opts)
		return mem, nil
	}
	return mem, nOpts
}

// flush pushes batched spans out; shutting down would also clear the
// in-memory exporter.
func flush(t *testing.T) {
	t.Helper()
	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok)
	require.NoError(t, tp.ForceFlush(context.Background()))
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	_, _ = memoryExporter(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "v0")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestSetupOTel_ExportsSpansWithServiceResource(t *testing.T) {
	mem, nOpts := memoryExporter(t)

	shutdown, err := SetupOTel(context.Background(), enabledCfg(), "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, 2, *nOpts, "endpoint plus transport security")

	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := otel.Tracer("stories").Start(context.Background(), "StoryService.Create")
	span.End()
	flush(t)

	spans := mem.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "StoryService.Create", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "story-backend-test", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "story-api", attrs["app.component"])
}

func TestSetupOTel_ZeroRatioDropsRootSpans(t *testing.T) {
	mem, _ := memoryExporter(t)
	cfg := enabledCfg()
	cfg.SampleRatio = -1

	shutdown, err := SetupOTel(context.Background(), cfg, "v0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := otel.Tracer("stories").Start(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	flush(t)
	assert.Empty(t, mem.GetSpans())
}

func TestSetupOTel_PropagatesTraceContext(t *testing.T) {
	_, _ = memoryExporter(t)
	shutdown, err := SetupOTel(context.Background(), enabledCfg(), "v0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := otel.Tracer("http").Start(context.Background(), "GET /stories")
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	assert.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())
}

func TestSetupOTel_FailuresLeaveGlobals(t *testing.T) {
	t.Run("exporter", func(t *testing.T) {
		_, _ = memoryExporter(t)
		newExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
			return nil, errors.New("collector unreachable")
		}
		before := otel.GetTracerProvider()
		_, err := SetupOTel(context.Background(), enabledCfg(), "v0")
		assert.EqualError(t, err, "collector unreachable")
		assert.Equal(t, before, otel.GetTracerProvider())
	})

	t.Run("resource", func(t *testing.T) {
		_, _ = memoryExporter(t)
		prev := newServiceResourceFn
		t.Cleanup(func() { newServiceResourceFn = prev })
		newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
			return nil, errors.New("bad resource")
		}
		before := otel.GetTracerProvider()
		_, err := SetupOTel(context.Background(), enabledCfg(), "v0")
		assert.EqualError(t, err, "bad resource")
		assert.Equal(t, before, otel.GetTracerProvider())
	})
}

func TestSetupOTel_RealExporterBuildsLazily(t *testing.T) {
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	for _, insecure := range []bool{true, false} {
		cfg := enabledCfg()
		cfg.Insecure = insecure
		shutdown, err := SetupOTel(context.Background(), cfg, "v0")
		require.NoError(t, err, "no collector needed until spans are flushed")
		assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
		_ = shutdown(context.Background())
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0: 0, 0.25: 0.25, 1: 1, 7: 1} {
		assert.Equal(t, want, clampRatio(in), in)
	}
}
