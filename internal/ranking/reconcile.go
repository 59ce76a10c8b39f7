// Package ranking reconciles reasoning-service output with canonical
// knowledge items. The service scores items by index into a flattened
// candidate list; nothing it returns is trusted. Indices outside the list
// are dropped, scores are clamped into [0,1], and the surviving entries are
// sorted, thresholded, capped, and re-attached to canonical item data.
package ranking

import (
	"sort"

	"github.com/fyrsmithlabs/gapd/internal/knowledge"
)

// ScoredRef is one entry of a reasoning response: an index into the
// candidate list plus annotations. All fields are untrusted.
type ScoredRef struct {
	Index     int     `json:"index"`
	Score     float64 `json:"confidence"`
	Highlight string  `json:"highlight,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// Profile bounds a reconciled result list. MinScore of 0 disables the
// threshold; MaxResults of 0 disables the cap.
type Profile struct {
	MinScore   float64
	MaxResults int
}

// RankedResult is a canonical item with its reconciled score.
type RankedResult struct {
	Item      knowledge.KnowledgeItem `json:"item"`
	Score     float64                 `json:"score"`
	Highlight string                  `json:"highlight,omitempty"`
	Reason    string                  `json:"reason,omitempty"`
}

// Reconcile validates refs against the candidate list and returns the
// bounded, descending-sorted results. Out-of-range indices are dropped,
// scores clamped into [0,1]. The sort is stable: equal scores keep the
// upstream response order.
func Reconcile(items []knowledge.KnowledgeItem, refs []ScoredRef, profile Profile) []RankedResult {
	valid := make([]ScoredRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Index < 0 || ref.Index >= len(items) {
			continue
		}
		ref.Score = clamp01(ref.Score)
		valid = append(valid, ref)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Score > valid[j].Score
	})

	out := make([]RankedResult, 0, len(valid))
	for _, ref := range valid {
		if ref.Score < profile.MinScore {
			continue
		}
		out = append(out, RankedResult{
			Item:      items[ref.Index],
			Score:     ref.Score,
			Highlight: ref.Highlight,
			Reason:    ref.Reason,
		})
		if profile.MaxResults > 0 && len(out) == profile.MaxResults {
			break
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
