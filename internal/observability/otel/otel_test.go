package otel

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "disabled is always valid",
			cfg:     Config{Enabled: false, Protocol: "invalid", SampleRatio: -1},
			wantErr: false,
		},
		{
			name:    "valid otlphttp",
			cfg:     Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 0.5},
			wantErr: false,
		},
		{
			name:    "valid otlpgrpc",
			cfg:     Config{Enabled: true, Protocol: ProtocolGRPC, SampleRatio: 1.0},
			wantErr: false,
		},
		{
			name:    "invalid protocol",
			cfg:     Config{Enabled: true, Protocol: "invalid", SampleRatio: 1.0},
			wantErr: true,
		},
		{
			name:    "sample ratio below 0",
			cfg:     Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: -0.1},
			wantErr: true,
		},
		{
			name:    "sample ratio above 1",
			cfg:     Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 1.5},
			wantErr: true,
		},
		{
			name:    "endpoint with unsupported scheme",
			cfg:     Config{Enabled: true, Protocol: ProtocolGRPC, SampleRatio: 1, Endpoint: "unix:///run/otel.sock"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpanCreatedWithAttributes(t *testing.T) {
	// Create in-memory span recorder
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	h := InitWithProvider(tp)
	ctx := context.Background()

	// Start and end a span
	ctx, span := h.Tracer.Start(ctx, "hardenplan.test",
		trace.WithAttributes(
			attribute.String("hardenplan.command", "test"),
			attribute.String("hardenplan.op_id", "abc-123"),
		),
	)
	span.SetStatus(codes.Ok, "success")
	span.End()

	// Force flush
	_ = tp.ForceFlush(ctx)

	// Check recorded spans
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name() != "hardenplan.test" {
		t.Errorf("span name = %q, want %q", s.Name(), "hardenplan.test")
	}

	// Check attributes
	attrs := s.Attributes()
	var foundCommand, foundOpID bool
	for _, attr := range attrs {
		switch string(attr.Key) {
		case "hardenplan.command":
			foundCommand = true
			if attr.Value.AsString() != "test" {
				t.Errorf("hardenplan.command = %q, want %q", attr.Value.AsString(), "test")
			}
		case "hardenplan.op_id":
			foundOpID = true
		}
	}
	if !foundCommand {
		t.Error("missing attribute: hardenplan.command")
	}
	if !foundOpID {
		t.Error("missing attribute: hardenplan.op_id")
	}
}

func TestSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx := WithHandle(context.Background(), InitWithProvider(tp))

	_, span := StartSpan(ctx, "hardenplan.failing")
	EndSpan(span, errors.New("plan file not found"))

	_ = tp.ForceFlush(ctx)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", s.Status().Code)
	}

	// Check that error was recorded as an event
	events := s.Events()
	foundError := false
	for _, e := range events {
		if e.Name == "exception" {
			foundError = true
		}
	}
	if !foundError {
		t.Error("expected error event to be recorded")
	}
}

func TestContextRoundtrip(t *testing.T) {
	// Without handle
	ctx := context.Background()
	if h := From(ctx); h != nil {
		t.Error("expected nil handle from empty context")
	}

	// With handle
	handle := &Handle{}
	ctx = WithHandle(ctx, handle)
	if got := From(ctx); got != handle {
		t.Error("expected to retrieve the same handle from context")
	}
}

func TestStartSpanWithoutHandle(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "hardenplan.eval",
		attribute.Int("hardenplan.messages", 3))
	if span.SpanContext().IsValid() {
		t.Error("expected no-op span when tracing is disabled")
	}
	// must not panic
	EndSpan(span, nil)
	if From(ctx) != nil {
		t.Error("StartSpan should not install a handle")
	}
}

func TestResolveEndpoint(t *testing.T) {
	t.Setenv(envEndpoint, "")

	tests := []struct {
		name         string
		cfg          Config
		env          string
		wantHostPort string
		wantInsecure bool
	}{
		{"explicit host port", Config{Endpoint: "collector:4318"}, "", "collector:4318", false},
		{"http url is plaintext", Config{Endpoint: "http://collector:4318/v1/traces"}, "", "collector:4318", true},
		{"https url", Config{Endpoint: "https://collector.example:443"}, "", "collector.example:443", false},
		{"insecure flag", Config{Endpoint: "collector:4317", Insecure: true}, "", "collector:4317", true},
		{"grpc default", Config{Protocol: ProtocolGRPC}, "", "localhost:4317", false},
		{"http default", Config{Protocol: ProtocolHTTP}, "", "localhost:4318", false},
		{"env fallback", Config{Protocol: ProtocolHTTP}, "http://env:4318", "env:4318", true},
		{"flag beats env", Config{Endpoint: "flag:4318"}, "http://env:4318", "flag:4318", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envEndpoint, tt.env)
			got, err := tt.cfg.resolveEndpoint()
			if err != nil {
				t.Fatalf("resolveEndpoint() error = %v", err)
			}
			if got.hostPort != tt.wantHostPort || got.insecure != tt.wantInsecure {
				t.Errorf("resolveEndpoint() = %+v, want %s insecure=%v", got, tt.wantHostPort, tt.wantInsecure)
			}
		})
	}
}

func TestParseEndpoint_Invalid(t *testing.T) {
	for _, raw := range []string{"", "collector:4318/v1", "ftp://collector:21", "http://", "host name:1"} {
		if _, err := parseEndpoint(raw); err == nil {
			t.Errorf("parseEndpoint(%q) should fail", raw)
		}
	}
}

func TestDefaultConfig_ServiceNameFromEnv(t *testing.T) {
	t.Setenv(envServiceName, "")
	if got := DefaultConfig().ServiceName; got != "hardenplan" {
		t.Errorf("ServiceName = %q", got)
	}
	t.Setenv(envServiceName, "installer-ci")
	if got := DefaultConfig().ServiceName; got != "installer-ci" {
		t.Errorf("ServiceName = %q", got)
	}
}
