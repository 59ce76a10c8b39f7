package ranking

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gapd/internal/config"
	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/logging"
	"github.com/fyrsmithlabs/gapd/internal/reasoning"
)

// Result statuses. A degraded result carries empty results instead of an
// error when the reasoning service fails.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Ranker serves the ranked retrieval flows: semantic search,
// recommendations, and proactive suggestions.
type Ranker struct {
	store  knowledge.Store
	client reasoning.Client
	cfg    config.RankingConfig
	log    *logging.Logger
}

// NewRanker wires the ranked retrieval service.
func NewRanker(store knowledge.Store, client reasoning.Client, cfg config.RankingConfig, log *logging.Logger) *Ranker {
	if log == nil {
		log = logging.Nop()
	}
	return &Ranker{store: store, client: client, cfg: cfg, log: log}
}

// SearchResult is the response of one semantic search.
type SearchResult struct {
	Query         string         `json:"query"`
	Intent        string         `json:"intent,omitempty"`
	Results       []RankedResult `json:"results"`
	TotalSearched int            `json:"total_searched"`
	Status        string         `json:"status"`
}

const searchSystem = `You rank knowledge-base items by relevance to a user query.`

const searchHint = `{
  "intent": "one-line restatement of what the user wants",
  "results": [{"index": 0, "confidence": 0.0, "highlight": "matching passage"}]
}`

// searchResponse is the expected reasoning output for search and
// recommendation flows.
type searchResponse struct {
	Intent  string      `json:"intent"`
	Results []ScoredRef `json:"results"`
}

// Search runs a semantic search over published documents and approved Q&A.
// An empty query is rejected before any external call. Reasoning failures
// degrade to an empty result set, never an error.
func (r *Ranker) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	items, err := r.flattenItems(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &SearchResult{Query: query, Results: []RankedResult{}, Status: StatusOK}, nil
	}

	prompt := buildRankingPrompt("User query: "+query, items)
	resp, err := r.client.Invoke(ctx, reasoning.Request{
		System:       searchSystem,
		Prompt:       prompt,
		ResponseHint: searchHint,
	})
	if err != nil {
		r.log.Warn(ctx, "search reasoning failed, degrading", zap.Error(err))
		return &SearchResult{Query: query, Results: []RankedResult{}, TotalSearched: len(items), Status: StatusDegraded}, nil
	}

	var parsed searchResponse
	if err := reasoning.DecodeObject(resp.Output, &parsed); err != nil {
		r.log.Warn(ctx, "search response unparsable, degrading", zap.Error(err))
		return &SearchResult{Query: query, Results: []RankedResult{}, TotalSearched: len(items), Status: StatusDegraded}, nil
	}

	profile := Profile{MinScore: r.cfg.SearchMinScore, MaxResults: r.cfg.SearchMaxResults}
	return &SearchResult{
		Query:         query,
		Intent:        parsed.Intent,
		Results:       Reconcile(items, parsed.Results, profile),
		TotalSearched: len(items),
		Status:        StatusOK,
	}, nil
}

// flattenItems builds the index-ordered candidate list: published documents
// first, then approved Q&A. IDs in exclude are skipped.
func (r *Ranker) flattenItems(ctx context.Context, exclude map[string]bool) ([]knowledge.KnowledgeItem, error) {
	docs, err := r.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	qas, err := r.store.ListQAs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list curated qa: %w", err)
	}

	items := make([]knowledge.KnowledgeItem, 0, len(docs)+len(qas))
	for _, d := range docs {
		if d.Status != knowledge.StatusPublished || exclude[d.ID] {
			continue
		}
		items = append(items, d.Item())
	}
	for _, q := range qas {
		if q.Status != knowledge.StatusApproved || exclude[q.ID] {
			continue
		}
		items = append(items, q.Item())
	}
	return items, nil
}

// buildRankingPrompt renders the candidate list with stable indices. Item
// content is truncated so one oversized document cannot blow the prompt.
func buildRankingPrompt(task string, items []knowledge.KnowledgeItem) string {
	const maxSnippet = 300

	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nCandidate items:\n")
	for i, item := range items {
		snippet := item.Content
		if len(snippet) > maxSnippet {
			snippet = snippet[:maxSnippet]
		}
		fmt.Fprintf(&b, "[%d] (%s) %s: %s\n", i, item.Kind, item.Title, snippet)
	}
	return b.String()
}
