package ranking

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gapd/internal/reasoning"
)

// SuggestResult is the response of one proactive suggestion request.
type SuggestResult struct {
	Results []RankedResult `json:"results"`
	Status  string         `json:"status"`
}

const suggestSystem = `You pick the few knowledge-base items most worth surfacing unprompted in an ongoing conversation. Only suggest items with a strong connection.`

const suggestHint = `{
  "results": [{"index": 0, "confidence": 0.0, "reason": "why this is worth surfacing now"}]
}`

type suggestResponse struct {
	Results []ScoredRef `json:"results"`
}

// Suggest proactively surfaces items relevant to a conversation excerpt.
// The threshold is stricter and the cap smaller than search: unprompted
// suggestions must earn their interruption. Reasoning failures degrade to
// an empty result set.
func (r *Ranker) Suggest(ctx context.Context, conversation string) (*SuggestResult, error) {
	conversation = strings.TrimSpace(conversation)
	if conversation == "" {
		return nil, ErrEmptyQuery
	}

	items, err := r.flattenItems(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &SuggestResult{Results: []RankedResult{}, Status: StatusOK}, nil
	}

	resp, err := r.client.Invoke(ctx, reasoning.Request{
		System:       suggestSystem,
		Prompt:       buildRankingPrompt("Conversation excerpt:\n"+conversation, items),
		ResponseHint: suggestHint,
	})
	if err != nil {
		r.log.Warn(ctx, "suggestion reasoning failed, degrading", zap.Error(err))
		return &SuggestResult{Results: []RankedResult{}, Status: StatusDegraded}, nil
	}

	var parsed suggestResponse
	if err := reasoning.DecodeObject(resp.Output, &parsed); err != nil {
		r.log.Warn(ctx, "suggestion response unparsable, degrading", zap.Error(err))
		return &SuggestResult{Results: []RankedResult{}, Status: StatusDegraded}, nil
	}

	profile := Profile{MinScore: r.cfg.SuggestMinScore, MaxResults: r.cfg.SuggestMax}
	return &SuggestResult{
		Results: Reconcile(items, parsed.Results, profile),
		Status:  StatusOK,
	}, nil
}
