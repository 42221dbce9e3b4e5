// Package telemetry configures OpenTelemetry tracing for the CLI and the
// HTTP server.
package telemetry

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
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/abhisek/kahani/internal/logger"
)

// Options configures tracing.
type Options struct {
	Enabled     bool
	ServiceName string
	Version     string
	Environment string

	// Endpoint selects the OTLP/HTTP exporter; empty writes spans to
	// Writer instead.
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	SampleRatio float64

	Writer io.Writer // default os.Stderr
}

// OptionsFromEnv reads the standard OTEL_* variables.
func OptionsFromEnv(version string) Options {
	return Options{
		Enabled:     truthy(os.Getenv("OTEL_ENABLED")),
		ServiceName: envOr("OTEL_SERVICE_NAME", "kahani"),
		Version:     version,
		Environment: strings.TrimSpace(os.Getenv("KAHANI_ENV")),
		Endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:    truthy(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")),
		Headers:     parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		SampleRatio: sampleRatio(os.Getenv("OTEL_SAMPLER_RATIO")),
	}
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Init installs a global tracer provider when tracing is enabled. Exporter
// failures are logged and tracing continues without export.
func Init(ctx context.Context, log *logger.Logger, opts Options) Shutdown {
	if !opts.Enabled {
		return noop
	}
	if log == nil {
		log = logger.Nop()
	}
	name := strings.TrimSpace(opts.ServiceName)
	if name == "" {
		name = "kahani"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(opts.Version),
		attribute.String("deployment.environment", opts.Environment),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler), sdktrace.WithResource(res)}

	exp, err := exporter(ctx, opts)
	if err != nil {
		log.Warn("otel exporter init failed (continuing)", "error", err)
	} else {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", name, "endpoint", opts.Endpoint)
	return tp.Shutdown
}

func exporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	if opts.Endpoint != "" {
		o := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			o = append(o, otlptracehttp.WithInsecure())
		}
		if len(opts.Headers) > 0 {
			o = append(o, otlptracehttp.WithHeaders(opts.Headers))
		}
		return otlptracehttp.New(ctx, o...)
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func sampleRatio(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 1
	}
	return min(1, max(0, f))
}

func parseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		headers[k] = v
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
