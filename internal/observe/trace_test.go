package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestTraceIDEmptyWithoutSpan(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID(background) = %q, want empty", got)
	}
}

func TestStartAndEndSpan(t *testing.T) {
	exp := useTestTracer(t)

	ctx, span := StartSpan(context.Background(), "consensus.reconcile")
	if len(TraceID(ctx)) != 32 {
		t.Errorf("expected 32-char trace id, got %q", TraceID(ctx))
	}
	EndSpan(span, nil)

	_, failed := StartSpan(context.Background(), "transcribe")
	EndSpan(failed, errors.New("backend down"))

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "consensus.reconcile" || spans[0].Status.Code == codes.Error {
		t.Errorf("unexpected first span %s status %v", spans[0].Name, spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error || spans[1].Status.Description != "backend down" {
		t.Errorf("expected error status on failed span, got %+v", spans[1].Status)
	}
}
