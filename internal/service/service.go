package service

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/op-arbiter/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("op-arbiter/service")

// Event names pushed to live subscribers of a tournament.
const (
	EventRoundGenerated  = "round_generated"
	EventResultSubmitted = "result_submitted"
	EventResultApproved  = "result_approved"
	EventStatusChanged   = "status_changed"
)

// Notifier receives an event after the mutation behind it has committed.
type Notifier interface {
	Publish(tournamentID uuid.UUID, event string, payload any)
}

type noopNotifier struct{}

func (noopNotifier) Publish(uuid.UUID, string, any) {}

// Deps carries the collaborators shared by every service.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Notifier Notifier
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = noopNotifier{}
	}
	return d
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
