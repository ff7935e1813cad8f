package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type pipelineMetrics struct {
	sessions      metric.Int64Counter
	stageDuration metric.Float64Histogram
}

func newPipelineMetrics() *pipelineMetrics {
	meter := otel.Meter("vrct/pipeline")
	m := &pipelineMetrics{}
	if counter, err := meter.Int64Counter(
		"vrct.sessions.total",
		metric.WithDescription("Completed push-to-talk sessions by outcome"),
	); err == nil {
		m.sessions = counter
	}
	if hist, err := meter.Float64Histogram(
		"vrct.stage.duration.seconds",
		metric.WithDescription("Wall time spent in each pipeline stage"),
	); err == nil {
		m.stageDuration = hist
	}
	return m
}

func (m *pipelineMetrics) recordOutcome(ctx context.Context, outcome string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *pipelineMetrics) recordStage(ctx context.Context, stage string, elapsed time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}
