package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gapd/internal/config"
	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/logging"
	"github.com/fyrsmithlabs/gapd/internal/reasoning"
)

func testRankingConfig() config.RankingConfig {
	return config.RankingConfig{
		SearchMinScore:   0.3,
		SearchMaxResults: 6,
		RecommendMax:     8,
		SuggestMinScore:  0.5,
		SuggestMax:       3,
	}
}

func seededStore(t *testing.T) (*knowledge.MemoryStore, []string) {
	t.Helper()
	store := knowledge.NewMemoryStore()

	var ids []string
	for i := 0; i < 3; i++ {
		doc := store.SeedDocument(knowledge.Document{
			Title:   fmt.Sprintf("Guide %d", i),
			Content: "guide content",
			Status:  knowledge.StatusPublished,
		})
		ids = append(ids, doc.ID)
	}
	qa := store.SeedQA(knowledge.CuratedQA{
		Question: "How do I export data?",
		Answer:   "Use the export tab.",
		Status:   knowledge.StatusApproved,
	})
	ids = append(ids, qa.ID)

	// Unpublished content never enters the candidate list.
	store.SeedDocument(knowledge.Document{Title: "Draft", Status: knowledge.StatusDraft})
	return store, ids
}

func TestRanker_Search(t *testing.T) {
	store, _ := seededStore(t)
	client := reasoning.NewMockClient().Queue(`{
		"intent": "find export instructions",
		"results": [
			{"index": 3, "confidence": 0.9, "highlight": "Use the export tab."},
			{"index": 0, "confidence": 0.5},
			{"index": 1, "confidence": 0.2}
		]
	}`, nil)

	ranker := NewRanker(store, client, testRankingConfig(), logging.Nop())
	result, err := ranker.Search(context.Background(), "how to export")
	require.NoError(t, err)

	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "find export instructions", result.Intent)
	// The 0.2 entry falls below the search threshold.
	require.Len(t, result.Results, 2)
	assert.Equal(t, knowledge.KindQA, result.Results[0].Item.Kind)
	assert.Equal(t, 0.9, result.Results[0].Score)
}

func TestRanker_Search_EmptyQueryRejectedBeforeUpstream(t *testing.T) {
	store, _ := seededStore(t)
	client := reasoning.NewMockClient()

	ranker := NewRanker(store, client, testRankingConfig(), logging.Nop())
	_, err := ranker.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, client.Calls())
}

func TestRanker_Search_DegradesOnUpstreamFailure(t *testing.T) {
	store, _ := seededStore(t)

	t.Run("invoke error", func(t *testing.T) {
		client := reasoning.NewMockClient().Queue("", errors.New("connection refused"))
		ranker := NewRanker(store, client, testRankingConfig(), logging.Nop())

		result, err := ranker.Search(context.Background(), "export")
		require.NoError(t, err)
		assert.Equal(t, StatusDegraded, result.Status)
		assert.Empty(t, result.Results)
	})

	t.Run("unparsable payload", func(t *testing.T) {
		client := reasoning.NewMockClient().Queue("sorry, I cannot help with that", nil)
		ranker := NewRanker(store, client, testRankingConfig(), logging.Nop())

		result, err := ranker.Search(context.Background(), "export")
		require.NoError(t, err)
		assert.Equal(t, StatusDegraded, result.Status)
		assert.Empty(t, result.Results)
	})
}

func TestRanker_Recommend_ExcludesDismissed(t *testing.T) {
	store, ids := seededStore(t)
	client := reasoning.NewMockClient().Queue(`{
		"insight": "focused on setup guides",
		"results": [
			{"index": 0, "confidence": 0.8, "reason": "matches recent queries"},
			{"index": 1, "confidence": 0.1}
		]
	}`, nil)

	ranker := NewRanker(store, client, testRankingConfig(), logging.Nop())
	result, err := ranker.Recommend(context.Background(), UserContext{
		Interests:     []string{"deployment"},
		RecentQueries: []string{"setup", "onboarding"},
		DismissedIDs:  []string{ids[0]},
	})
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Declared interests: deployment")

	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "focused on setup guides", result.Insight)
	// No threshold on recommendations: the 0.1 entry survives.
	require.Len(t, result.Results, 2)
	for _, res := range result.Results {
		assert.NotEqual(t, ids[0], res.Item.ID, "dismissed item must not be recommended")
	}
}

func TestRanker_Suggest_StrictThresholdAndCap(t *testing.T) {
	store, _ := seededStore(t)
	client := reasoning.NewMockClient().Queue(`{
		"results": [
			{"index": 0, "confidence": 0.95, "reason": "directly relevant"},
			{"index": 1, "confidence": 0.8},
			{"index": 2, "confidence": 0.7},
			{"index": 3, "confidence": 0.6}
		]
	}`, nil)

	ranker := NewRanker(store, client, testRankingConfig(), logging.Nop())
	result, err := ranker.Suggest(context.Background(), "we were discussing data exports")
	require.NoError(t, err)

	assert.Equal(t, StatusOK, result.Status)
	// Cap of 3 even though four entries pass the 0.5 threshold.
	assert.Len(t, result.Results, 3)

	_, err = ranker.Suggest(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRanker_EmptyStoreSkipsUpstream(t *testing.T) {
	store := knowledge.NewMemoryStore()
	client := reasoning.NewMockClient()

	ranker := NewRanker(store, client, testRankingConfig(), logging.Nop())
	result, err := ranker.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Empty(t, result.Results)
	assert.Empty(t, client.Calls())
}
