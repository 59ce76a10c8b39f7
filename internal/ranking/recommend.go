package ranking

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gapd/internal/reasoning"
)

// UserContext carries the signals the recommendation flow personalizes on.
type UserContext struct {
	UserID string `json:"user_id,omitempty"`

	// Interests are declared topic preferences.
	Interests []string `json:"interests,omitempty"`

	// RecentQueries are the user's latest search inputs, newest first.
	RecentQueries []string `json:"recent_queries,omitempty"`

	// DismissedIDs are knowledge item IDs the user marked not relevant.
	// They never appear in recommendations.
	DismissedIDs []string `json:"dismissed_ids,omitempty"`
}

// RecommendResult is the response of one recommendation request.
type RecommendResult struct {
	Results []RankedResult `json:"recommendations"`
	Insight string         `json:"insights,omitempty"`
	Status  string         `json:"status"`
}

const recommendSystem = `You recommend knowledge-base items a user is likely to need next, based on their recent activity.`

const recommendHint = `{
  "insight": "one-line summary of the user's apparent focus",
  "results": [{"index": 0, "confidence": 0.0, "reason": "why this item helps"}]
}`

type recommendResponse struct {
	Insight string      `json:"insight"`
	Results []ScoredRef `json:"results"`
}

// Recommend ranks items for a user, excluding anything they dismissed.
// There is no score threshold; the list is capped only. Reasoning failures
// degrade to an empty result set.
func (r *Ranker) Recommend(ctx context.Context, user UserContext) (*RecommendResult, error) {
	exclude := make(map[string]bool, len(user.DismissedIDs))
	for _, id := range user.DismissedIDs {
		exclude[id] = true
	}

	items, err := r.flattenItems(ctx, exclude)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &RecommendResult{Results: []RankedResult{}, Status: StatusOK}, nil
	}

	task := "Recommend items for this user."
	if len(user.Interests) > 0 {
		task += "\nDeclared interests: " + strings.Join(user.Interests, ", ")
	}
	if len(user.RecentQueries) > 0 {
		task += "\nRecent queries:\n- " + strings.Join(user.RecentQueries, "\n- ")
	}

	resp, err := r.client.Invoke(ctx, reasoning.Request{
		System:       recommendSystem,
		Prompt:       buildRankingPrompt(task, items),
		ResponseHint: recommendHint,
	})
	if err != nil {
		r.log.Warn(ctx, "recommendation reasoning failed, degrading", zap.Error(err))
		return &RecommendResult{Results: []RankedResult{}, Status: StatusDegraded}, nil
	}

	var parsed recommendResponse
	if err := reasoning.DecodeObject(resp.Output, &parsed); err != nil {
		r.log.Warn(ctx, "recommendation response unparsable, degrading", zap.Error(err))
		return &RecommendResult{Results: []RankedResult{}, Status: StatusDegraded}, nil
	}

	profile := Profile{MaxResults: r.cfg.RecommendMax}
	return &RecommendResult{
		Results: Reconcile(items, parsed.Results, profile),
		Insight: parsed.Insight,
		Status:  StatusOK,
	}, nil
}
