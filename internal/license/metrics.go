package license

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName identifies the license meter.
const MeterName = "uvlicense"

// Metrics holds the license-protocol OpenTelemetry instruments.
type Metrics struct {
	ActivationAttempts metric.Int64Counter
	ActivationOutcomes metric.Int64Counter
	ActivationDuration metric.Float64Histogram
	WebhookEvents      metric.Int64Counter
	WebhookDuplicates  metric.Int64Counter
}

// NewMetrics creates the license instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.ActivationAttempts, err = meter.Int64Counter(
		"license.activation.attempts",
		metric.WithDescription("Total license activation attempts"),
	); err != nil {
		return nil, err
	}

	if m.ActivationOutcomes, err = meter.Int64Counter(
		"license.activation.outcomes",
		metric.WithDescription("Activation outcomes by terminal status"),
	); err != nil {
		return nil, err
	}

	if m.ActivationDuration, err = meter.Float64Histogram(
		"license.activation.duration",
		metric.WithDescription("Activation pipeline duration"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.WebhookEvents, err = meter.Int64Counter(
		"payment.webhook.events",
		metric.WithDescription("Payment webhook deliveries by result"),
	); err != nil {
		return nil, err
	}

	if m.WebhookDuplicates, err = meter.Int64Counter(
		"payment.webhook.duplicates",
		metric.WithDescription("Redelivered payment events answered idempotently"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordActivation records one pipeline run.
func (m *Metrics) RecordActivation(ctx context.Context, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.ActivationAttempts.Add(ctx, 1)
	m.ActivationOutcomes.Add(ctx, 1, attrs)
	m.ActivationDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// RecordWebhook records one payment webhook delivery.
func (m *Metrics) RecordWebhook(ctx context.Context, result string, duplicate bool) {
	m.WebhookEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	if duplicate {
		m.WebhookDuplicates.Add(ctx, 1)
	}
}
