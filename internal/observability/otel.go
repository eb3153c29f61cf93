package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/kindredlabs/kindred-backend/internal/platform/envutil"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// exporterConfig is the OTLP wiring read from the standard OTEL_* variables.
// An empty Endpoint selects the stdout exporter.
type exporterConfig struct {
	Endpoint string
	Headers  map[string]string
	Insecure bool
	Ratio    float64
}

var (
	initOnce sync.Once
	shutdown func(context.Context) error
)

// InitOTel installs the global tracer provider once per process and returns
// its shutdown func. Tracing is off unless OTEL_ENABLED is set; when off (or
// on a repeated call) the previously installed shutdown, possibly nil, is
// returned. Exporter failures degrade to a warning so a broken collector
// never blocks startup.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	initOnce.Do(func() {
		if !envutil.Bool("OTEL_ENABLED", false) {
			return
		}

		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "kindred-backend"
		}

		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		))
		if err != nil && log != nil {
			log.Warn("building otel resource failed, continuing with defaults", "error", err)
		}

		ec := loadExporterConfig()
		exporter, err := newExporter(ctx, ec, log)
		if err != nil {
			if log != nil {
				log.Warn("otel exporter init failed; tracing disabled", "error", err)
			}
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ec.Ratio))),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		shutdown = tp.Shutdown

		if log != nil {
			log.Info("otel tracing initialized",
				"service", serviceName,
				"endpoint", ec.Endpoint,
				"sample_ratio", ec.Ratio,
			)
		}
	})
	return shutdown
}

func loadExporterConfig() exporterConfig {
	ratio := envutil.Float64("OTEL_SAMPLER_RATIO", 0.1)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return exporterConfig{
		Endpoint: envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Headers:  parseHeaderList(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
		Insecure: envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		Ratio:    ratio,
	}
}

func newExporter(ctx context.Context, ec exporterConfig, log *logger.Logger) (sdktrace.SpanExporter, error) {
	if ec.Endpoint == "" {
		if log != nil {
			log.Warn("no OTLP endpoint set, exporting spans to stdout")
		}
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(ec.Endpoint)}
	if ec.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(ec.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(ec.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// parseHeaderList parses the OTLP "k1=v1,k2=v2" header convention.
func parseHeaderList(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if key != "" && val != "" {
			headers[key] = val
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
