package gapdetect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/logging"
)

// minTopicMatchLength guards the containment match against short, generic
// topics ("access" would otherwise merge into every topic containing it).
const minTopicMatchLength = 4

// MergeEngine reconciles synthesized candidates against persisted gaps:
// merge into a matching active gap, or create a new one.
type MergeEngine struct {
	store knowledge.Store
	log   *logging.Logger
}

// NewMergeEngine creates a merge engine writing as the system principal.
func NewMergeEngine(store knowledge.Store, log *logging.Logger) *MergeEngine {
	if log == nil {
		log = logging.Nop()
	}
	return &MergeEngine{store: store, log: log}
}

// MergeResult reports what a merge did with one candidate.
type MergeResult struct {
	Gap    *knowledge.ContentGap
	Merged bool // true when folded into an existing gap
}

// Merge reconciles one candidate. On a version conflict the read-merge-write
// cycle is retried once against fresh state; a second conflict surfaces.
func (m *MergeEngine) Merge(ctx context.Context, cand Candidate) (MergeResult, error) {
	result, err := m.mergeOnce(ctx, cand)
	if errors.Is(err, knowledge.ErrVersionConflict) {
		m.log.Warn(ctx, "gap merge conflict, retrying", zap.String("topic", cand.Topic))
		result, err = m.mergeOnce(ctx, cand)
	}
	return result, err
}

func (m *MergeEngine) mergeOnce(ctx context.Context, cand Candidate) (MergeResult, error) {
	existing, err := m.store.ListGaps(ctx, knowledge.GapFilter{ExcludeTerminal: true})
	if err != nil {
		return MergeResult{}, fmt.Errorf("list gaps: %w", err)
	}

	sys := knowledge.SystemPrincipal()

	if match := findMatch(existing, cand.Topic); match != nil {
		match.Frequency += cand.Frequency
		match.AppendExamples(cand.Examples)
		match.Priority = knowledge.PriorityForFrequency(match.Frequency)

		updated, err := m.store.UpdateGap(ctx, sys, match)
		if err != nil {
			return MergeResult{}, err
		}
		return MergeResult{Gap: updated, Merged: true}, nil
	}

	gap, err := knowledge.NewContentGap(cand.Topic, cand.Description, cand.Frequency, cand.Examples)
	if err != nil {
		return MergeResult{}, err
	}
	gap.SuggestedTags = cand.SuggestedTags
	gap.SuggestedContentType = cand.ContentType

	created, err := m.store.CreateGap(ctx, sys, gap)
	if err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Gap: created, Merged: false}, nil
}

// findMatch returns the active gap whose topic case-insensitively contains
// the candidate topic, or vice versa. When several match, the one with the
// highest frequency wins so repeated signals keep converging on the same
// record.
func findMatch(gaps []knowledge.ContentGap, topic string) *knowledge.ContentGap {
	var best *knowledge.ContentGap
	for i := range gaps {
		if !topicsMatch(gaps[i].Topic, topic) {
			continue
		}
		if best == nil || gaps[i].Frequency > best.Frequency {
			best = &gaps[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// topicsMatch applies bidirectional case-insensitive containment. Topics
// shorter than minTopicMatchLength never match by containment.
func topicsMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if len(a) < minTopicMatchLength || len(b) < minTopicMatchLength {
		return a == b && a != ""
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
