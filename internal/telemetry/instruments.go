package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the nudge domain metrics. The zero value is not usable;
// call NewInstruments after Init.
type Instruments struct {
	decisions metric.Int64Counter
	reminders metric.Int64Counter
	checkDur  metric.Float64Histogram
}

// NewInstruments creates the domain instruments on the global meter
// provider. Instrument creation errors leave no-op instruments behind.
func NewInstruments() *Instruments {
	m := Meter("")
	decisions, _ := m.Int64Counter("nudge.stop.decisions",
		metric.WithDescription("Stop decisions emitted, by decision and state"),
	)
	reminders, _ := m.Int64Counter("nudge.reminders",
		metric.WithDescription("Attention reminders announced"),
	)
	checkDur, _ := m.Float64Histogram("nudge.check.duration",
		metric.WithDescription("Continuation check command duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return &Instruments{decisions: decisions, reminders: reminders, checkDur: checkDur}
}

// RecordDecision counts one stop decision.
func (i *Instruments) RecordDecision(ctx context.Context, decision, state string) {
	if i == nil || i.decisions == nil {
		return
	}
	i.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("nudge.decision", decision),
		attribute.String("nudge.state", state),
	))
}

// RecordReminder counts one reminder.
func (i *Instruments) RecordReminder(ctx context.Context, escalated bool) {
	if i == nil || i.reminders == nil {
		return
	}
	i.reminders.Add(ctx, 1, metric.WithAttributes(attribute.Bool("nudge.escalated", escalated)))
}

// RecordCheck records a check command's duration and outcome.
func (i *Instruments) RecordCheck(ctx context.Context, d time.Duration, passed bool) {
	if i == nil || i.checkDur == nil {
		return
	}
	i.checkDur.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(attribute.Bool("nudge.passed", passed)))
}
