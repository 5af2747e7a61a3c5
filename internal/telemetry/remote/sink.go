// Package remote provides the optional, best-effort remote telemetry sink
// described in the spec's external interfaces: a single callable invoked
// only for finalized sessions, whose failures are logged and dropped, never
// surfaced to the caller of datastore.Store.Flush. Grounded on the teacher's
// internal/observability/tracing.go (no-op-provider-when-unconfigured
// pattern) and internal/backoff (retry policy for the send itself).
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracehook/tracehook/internal/backoff"
	"github.com/tracehook/tracehook/internal/telemetry/model"
)

// Config configures the OTLP-backed sink.
type Config struct {
	// App names the runtime for the emitted event: "<App>:agent-stats".
	App string

	// Endpoint is the OTLP/gRPC collector endpoint. Empty disables export
	// (Sink.Send becomes a no-op that still "succeeds").
	Endpoint       string
	Insecure       bool
	MaxSendRetries int // default 3
}

// Sink is the OTLP-exporting implementation of datastore.RemoteSink.
type Sink struct {
	cfg      Config
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	logger   *slog.Logger
}

// New builds a Sink. When cfg.Endpoint is empty, the returned Sink's Send is
// a harmless no-op — the dependency is present and wired, but inert, exactly
// as the teacher's NewTracer degrades without a configured endpoint.
func New(cfg Config, logger *slog.Logger) (*Sink, func(context.Context) error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telemetry.remote")

	if cfg.MaxSendRetries <= 0 {
		cfg.MaxSendRetries = 3
	}

	if cfg.Endpoint == "" {
		return &Sink{cfg: cfg, logger: logger}, func(context.Context) error { return nil }
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		logger.Warn("failed to build OTLP exporter, remote sink disabled", "error", err)
		return &Sink{cfg: cfg, logger: logger}, func(context.Context) error { return nil }
	}

	serviceName := cfg.App
	if serviceName == "" {
		serviceName = "tracehook"
	}
	res, err := sdkresource.New(context.Background(), sdkresource.WithAttributes(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		res = sdkresource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

	return &Sink{
			cfg:      cfg,
			tracer:   provider.Tracer(serviceName),
			provider: provider,
			logger:   logger,
		}, func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		}
}

// eventName is "<app>:agent-stats" per §6.
func (s *Sink) eventName() string {
	app := s.cfg.App
	if app == "" {
		app = "tracehook"
	}
	return app + ":agent-stats"
}

// Send forwards a finalized session as a single span carrying the session's
// JSON encoding as an attribute, retried with the teacher's backoff policy.
// It never returns an error the caller needs to act on beyond logging —
// datastore.Store already treats Send failures as best-effort.
func (s *Sink) Send(sessionID string, session *model.TelemetrySession) error {
	if s.tracer == nil {
		return nil // no endpoint configured; inert by design
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("remote: marshal session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = backoff.RetryWithBackoff(ctx, backoff.DefaultPolicy(), s.cfg.MaxSendRetries,
		func(attempt int) (struct{}, error) {
			return struct{}{}, s.sendOnce(ctx, sessionID, payload)
		})
	if err != nil {
		s.logger.Warn("remote telemetry send exhausted retries, dropping", "session_id", sessionID, "error", err)
	}
	return err
}

func (s *Sink) sendOnce(ctx context.Context, sessionID string, payload []byte) (err error) {
	_, span := s.tracer.Start(ctx, s.eventName(), trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("session_size_bytes", len(payload)),
		attribute.String("session_json", string(payload)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return nil
}
