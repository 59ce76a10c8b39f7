package gapdetect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/gapd/internal/config"
	"github.com/fyrsmithlabs/gapd/internal/interaction"
	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/logging"
)

// Report summarizes one detection run.
type Report struct {
	// Gaps holds the created or updated gap records, in merge order.
	Gaps []knowledge.ContentGap `json:"gaps"`

	// Analyzed is the number of interaction events scanned.
	Analyzed int `json:"analyzed"`

	// PatternsFound is the number of clusters that passed the threshold.
	PatternsFound int `json:"patterns_found"`

	// FailedClusters counts clusters dropped from the run, whether their
	// synthesis or their merge failed. The run itself still succeeds.
	FailedClusters int `json:"failed_clusters"`
}

// Detector runs the full detection pipeline: extract, cluster, synthesize,
// merge.
type Detector struct {
	events      interaction.Log
	synthesizer *Synthesizer
	merger      *MergeEngine
	cfg         config.DetectionConfig
	log         *logging.Logger
	metrics     *detectMetrics
}

// NewDetector wires the pipeline. Metric registration failures are logged
// and disable metrics rather than failing construction.
func NewDetector(events interaction.Log, synth *Synthesizer, merger *MergeEngine, cfg config.DetectionConfig, log *logging.Logger) *Detector {
	if log == nil {
		log = logging.Nop()
	}
	metrics, err := newDetectMetrics()
	if err != nil {
		log.Warn(context.Background(), "detection metrics disabled", zap.Error(err))
		metrics = nil
	}
	return &Detector{
		events:      events,
		synthesizer: synth,
		merger:      merger,
		cfg:         cfg,
		log:         log,
		metrics:     metrics,
	}
}

// Run executes one detection pass over events newer than the lookback
// cutoff. Per-cluster failures are logged and skipped; only an unreachable
// interaction log is a hard error.
//
// Writes happen strictly after all synthesis completes, so cancellation
// mid-synthesis leaves the knowledge store untouched.
func (d *Detector) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	cutoff := start.Add(-d.cfg.Lookback.Duration())

	events, err := d.events.Since(ctx, cutoff, d.cfg.WindowSize)
	if err != nil {
		d.metrics.recordRun(ctx, "error")
		return nil, fmt.Errorf("read interaction log: %w", err)
	}

	signals := ExtractProblematic(events)
	clusters := BuildClusters(signals, d.cfg.MinClusterSize, d.cfg.MaxClusters)

	d.log.Info(ctx, "detection run started",
		zap.Int("events", len(events)),
		zap.Int("signals", len(signals)),
		zap.Int("clusters", len(clusters)),
	)

	report := &Report{
		Gaps:          []knowledge.ContentGap{},
		Analyzed:      len(events),
		PatternsFound: len(clusters),
	}

	candidates := make([]*Candidate, len(clusters))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxConcurrent)
	for i, cluster := range clusters {
		g.Go(func() error {
			cand, err := d.synthesizer.Synthesize(gctx, cluster)
			if err != nil {
				d.log.Warn(gctx, "cluster synthesis failed, skipping",
					zap.String("signature", cluster.Signature),
					zap.Error(err),
				)
				mu.Lock()
				report.FailedClusters++
				mu.Unlock()
				return nil
			}
			candidates[i] = &cand
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.metrics.recordRun(ctx, "error")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		d.metrics.recordRun(ctx, "cancelled")
		return nil, err
	}

	// Merges run serialized in cluster rank order so concurrent synthesis
	// never races the read-merge-write cycle within a run.
	var created, merged int64
	for _, cand := range candidates {
		if cand == nil {
			continue
		}
		result, err := d.merger.Merge(ctx, *cand)
		if err != nil {
			d.log.Warn(ctx, "gap merge failed, skipping candidate",
				zap.String("topic", cand.Topic),
				zap.Error(err),
			)
			report.FailedClusters++
			continue
		}
		report.Gaps = append(report.Gaps, *result.Gap)
		if result.Merged {
			merged++
		} else {
			created++
		}
	}

	if d.metrics != nil {
		d.metrics.add(ctx, d.metrics.eventsAnalyzed, int64(report.Analyzed))
		d.metrics.add(ctx, d.metrics.clustersFound, int64(report.PatternsFound))
		d.metrics.add(ctx, d.metrics.gapsCreated, created)
		d.metrics.add(ctx, d.metrics.gapsMerged, merged)
		d.metrics.add(ctx, d.metrics.synthesisFailures, int64(report.FailedClusters))
	}
	d.metrics.recordRun(ctx, "ok")

	d.log.Info(ctx, "detection run finished",
		zap.Int("gaps", len(report.Gaps)),
		zap.Int64("created", created),
		zap.Int64("merged", merged),
		zap.Int("failed_clusters", report.FailedClusters),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}
