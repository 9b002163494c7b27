package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupInstallsGlobalProvider(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	shutdown, err := Setup(context.Background(), Config{ServiceName: "hederakit-test"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}()

	_, span := otel.Tracer("test").Start(context.Background(), "check")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatal("expected a recording span from the installed provider")
	}
}
