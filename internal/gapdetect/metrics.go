package gapdetect

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// detectMetrics records detection run outcomes.
type detectMetrics struct {
	runs              metric.Int64Counter
	eventsAnalyzed    metric.Int64Counter
	clustersFound     metric.Int64Counter
	gapsCreated       metric.Int64Counter
	gapsMerged        metric.Int64Counter
	synthesisFailures metric.Int64Counter
}

func newDetectMetrics() (*detectMetrics, error) {
	meter := otel.Meter("gapd.gapdetect")
	m := &detectMetrics{}

	var err error
	if m.runs, err = meter.Int64Counter("gapd.detect.runs",
		metric.WithDescription("Detection runs executed"),
		metric.WithUnit("{run}")); err != nil {
		return nil, err
	}
	if m.eventsAnalyzed, err = meter.Int64Counter("gapd.detect.events_analyzed",
		metric.WithDescription("Interaction events scanned for gap signals"),
		metric.WithUnit("{event}")); err != nil {
		return nil, err
	}
	if m.clustersFound, err = meter.Int64Counter("gapd.detect.clusters_found",
		metric.WithDescription("Clusters promoted past the occurrence threshold"),
		metric.WithUnit("{cluster}")); err != nil {
		return nil, err
	}
	if m.gapsCreated, err = meter.Int64Counter("gapd.detect.gaps_created",
		metric.WithDescription("New content gaps created"),
		metric.WithUnit("{gap}")); err != nil {
		return nil, err
	}
	if m.gapsMerged, err = meter.Int64Counter("gapd.detect.gaps_merged",
		metric.WithDescription("Candidates folded into existing gaps"),
		metric.WithUnit("{gap}")); err != nil {
		return nil, err
	}
	if m.synthesisFailures, err = meter.Int64Counter("gapd.detect.synthesis_failures",
		metric.WithDescription("Cluster synthesis attempts that failed"),
		metric.WithUnit("{cluster}")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *detectMetrics) recordRun(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *detectMetrics) add(ctx context.Context, counter metric.Int64Counter, n int64) {
	if m == nil || n == 0 {
		return
	}
	counter.Add(ctx, n)
}
