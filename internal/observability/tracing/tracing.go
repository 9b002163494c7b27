// Package tracing configures the process-wide OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

// Config controls span export.
type Config struct {
	ServiceName string `json:"service_name"`
	// OTLPEndpoint is an OTLP/HTTP URL such as http://localhost:4318. Empty
	// keeps spans in-process.
	OTLPEndpoint string  `json:"otlp_endpoint"`
	SampleRatio  float64 `json:"sample_ratio"`
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// Setup installs a tracer provider as the otel global and returns its
// shutdown hook.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "hederakit"
	}
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "初始化 OTLP 导出器失败")
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
