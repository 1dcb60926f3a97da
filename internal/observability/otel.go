// Package observability sets up OpenTelemetry tracing. Tracing is off unless
// OTEL_ENABLED is truthy; spans then go to an OTLP/HTTP collector when
// OTEL_EXPORTER_OTLP_ENDPOINT is set, and to the configured writer otherwise.
package observability

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/alnah/go-videochunk/internal/logger"
)

// InstrumentationName identifies this module's tracer.
const InstrumentationName = "github.com/alnah/go-videochunk"

const defaultSampleRatio = 1.0

// Config describes the traced service.
type Config struct {
	ServiceName string
	Version     string
	// Getenv reads OTEL_* settings; nil means os.Getenv.
	Getenv func(string) string
	// Writer receives spans when no OTLP endpoint is set; nil means stderr.
	Writer io.Writer
}

// Init installs a global tracer provider and returns its shutdown function.
// When tracing is disabled the returned function does nothing. Exporter
// failures are logged and leave tracing disabled.
func Init(ctx context.Context, log *logger.Logger, cfg Config) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if log == nil {
		log = logger.NewNop()
	}
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if !enabled(getenv) {
		return noop
	}

	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "videochunk"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("service.component", name),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	exporter, err := buildExporter(ctx, getenv, cfg.Writer)
	if err != nil {
		log.Warn("otel exporter init failed, tracing disabled", "error", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(getenv)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", name, "endpoint", endpoint(getenv))
	return tp.Shutdown
}

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

func enabled(getenv func(string) string) bool {
	switch strings.ToLower(strings.TrimSpace(getenv("OTEL_ENABLED"))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func sampleRatio(getenv func(string) string) float64 {
	v := strings.TrimSpace(getenv("OTEL_SAMPLER_RATIO"))
	if v == "" {
		return defaultSampleRatio
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultSampleRatio
	}
	return min(1, max(0, f))
}

func endpoint(getenv func(string) string) string {
	return strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

// headers parses OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func headers(getenv func(string) string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(getenv("OTEL_EXPORTER_OTLP_HEADERS"), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func buildExporter(ctx context.Context, getenv func(string) string, w io.Writer) (sdktrace.SpanExporter, error) {
	if ep := endpoint(getenv); ep != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(ep)}
		switch strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_INSECURE"))) {
		case "1", "true", "yes", "on":
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if h := headers(getenv); h != nil {
			opts = append(opts, otlptracehttp.WithHeaders(h))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
}
