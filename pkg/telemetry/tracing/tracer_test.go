package tracing

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/pricelist/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("disabled tracer reports enabled")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("noop span should not carry a trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "test"); err == nil {
		t.Error("New(nil) should fail")
	}
	if _, err := NewWithExporter(nil, "test", tracetest.NewInMemoryExporter()); err == nil {
		t.Error("NewWithExporter(nil) should fail")
	}
}

func TestNewWithExporter_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := &config.TracingConfig{Enabled: true, Sampler: SamplerAlways, ServiceName: "pricelist"}

	tracer, err := NewWithExporter(cfg, "test", exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}

	ctx, run := tracer.StartRun(context.Background())
	SetRulesAttributes(run, "perfume-supplier-a", "abc123", 12, 21)
	SetSourceAttributes(run, "run-1", "supplier.xlsx", "Sheet1", 40)

	if TraceID(ctx) == "" {
		t.Error("TraceID() empty inside a sampled span")
	}

	_, rowSpan := tracer.StartRow(ctx, 2)
	SetRowAttributes(rowSpan, 9, 1)
	SetError(rowSpan, errors.New("rule failed"))
	rowSpan.End()
	run.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}

	row := spans[0]
	if row.Name != SpanRow {
		t.Fatalf("first span = %q", row.Name)
	}
	if row.Status.Code != codes.Error {
		t.Errorf("row span status = %v, want Error", row.Status.Code)
	}
	if row.Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("row span is not a child of the run span")
	}

	found := false
	for _, kv := range spans[1].Attributes {
		if kv.Key == attribute.Key(AttrRulesVersion) && kv.Value.AsString() == "abc123" {
			found = true
		}
	}
	if !found {
		t.Error("run span missing rules version attribute")
	}
}

func TestSetError_Nil(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(&config.TracingConfig{Enabled: true}, "test", exporter)
	if err != nil {
		t.Fatal(err)
	}

	_, span := tracer.Start(context.Background(), "ok")
	SetError(span, nil)
	span.End()
	_ = tracer.Shutdown(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code == codes.Error {
		t.Errorf("SetError(nil) should not mark the span failed: %+v", spans)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{"", 0, false},
		{SamplerAlways, 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.5, false},
		{SamplerRatio, 1.5, true},
		{SamplerRatio, -0.1, true},
		{"sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
			}
			if !tt.wantErr && sampler == nil {
				t.Error("nil sampler")
			}
		})
	}
}
