package knowledge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityForFrequency(t *testing.T) {
	tests := []struct {
		frequency int
		want      GapPriority
	}{
		{1, PriorityLow},
		{2, PriorityLow},
		{3, PriorityMedium},
		{4, PriorityMedium},
		{5, PriorityHigh},
		{12, PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("freq_%d", tt.frequency), func(t *testing.T) {
			assert.Equal(t, tt.want, PriorityForFrequency(tt.frequency))
		})
	}
}

func TestNewContentGap(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		gap, err := NewContentGap("password reset", "users cannot reset", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, gap.Frequency)
		assert.Equal(t, PriorityLow, gap.Priority)
		assert.Equal(t, GapIdentified, gap.Status)
		assert.Equal(t, ContentDocument, gap.SuggestedContentType)
		assert.Equal(t, []string{"low"}, gap.ConfidenceScores)
	})

	t.Run("caps creation examples at five", func(t *testing.T) {
		examples := []string{"a", "b", "c", "d", "e", "f", "g"}
		gap, err := NewContentGap("billing", "", 3, examples)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, gap.QueryExamples)
		assert.Equal(t, PriorityMedium, gap.Priority)
	})

	t.Run("empty topic rejected", func(t *testing.T) {
		_, err := NewContentGap("  ", "", 1, nil)
		assert.ErrorIs(t, err, ErrEmptyTopic)
	})
}

func TestContentGap_AppendExamples(t *testing.T) {
	gap, err := NewContentGap("exports", "", 1, []string{"e1", "e2", "e3", "e4", "e5"})
	require.NoError(t, err)

	gap.AppendExamples([]string{"e6", "e7", "e8", "e9", "e10", "e11", "e12"})

	require.Len(t, gap.QueryExamples, MaxQueryExamples)
	// Oldest entries fall off; the most recent ten survive.
	assert.Equal(t, "e3", gap.QueryExamples[0])
	assert.Equal(t, "e12", gap.QueryExamples[9])
}

func TestGapStatus_Transitions(t *testing.T) {
	gap, err := NewContentGap("sso setup", "", 1, nil)
	require.NoError(t, err)

	require.NoError(t, gap.Transition(GapInProgress))
	require.NoError(t, gap.Transition(GapAddressed))

	// Terminal states admit no further moves.
	err = gap.Transition(GapInProgress)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	err = gap.Transition(GapDismissed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNormalizeContentType(t *testing.T) {
	assert.Equal(t, ContentQA, NormalizeContentType("QA"))
	assert.Equal(t, ContentBoth, NormalizeContentType(" both "))
	assert.Equal(t, ContentDocument, NormalizeContentType("article"))
	assert.Equal(t, ContentDocument, NormalizeContentType(""))
}

func TestMemoryStore_GapLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sys := SystemPrincipal()

	gap, err := NewContentGap("api rate limits", "frequent throttling questions", 2, []string{"why am i throttled"})
	require.NoError(t, err)

	created, err := store.CreateGap(ctx, sys, gap)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	created.Frequency = 5
	created.Priority = PriorityForFrequency(created.Frequency)
	updated, err := store.UpdateGap(ctx, sys, created)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, PriorityHigh, updated.Priority)

	// Stale version loses.
	created.Frequency = 9
	created.Priority = PriorityHigh
	_, err = store.UpdateGap(ctx, sys, created)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMemoryStore_GapWritesRequireSystemRole(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user := Principal{ID: "u-123", Role: RoleUser}

	gap, err := NewContentGap("webhooks", "", 1, nil)
	require.NoError(t, err)

	_, err = store.CreateGap(ctx, user, gap)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	created, err := store.CreateGap(ctx, SystemPrincipal(), gap)
	require.NoError(t, err)

	_, err = store.UpdateGap(ctx, user, created)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestMemoryStore_ListGapsFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sys := SystemPrincipal()

	mk := func(topic string, status GapStatus) {
		g, err := NewContentGap(topic, "", 1, nil)
		require.NoError(t, err)
		created, err := store.CreateGap(ctx, sys, g)
		require.NoError(t, err)
		if status != GapIdentified {
			created.Status = status
			_, err = store.UpdateGap(ctx, sys, created)
			require.NoError(t, err)
		}
	}

	mk("alpha", GapIdentified)
	mk("beta", GapInProgress)
	mk("gamma", GapAddressed)
	mk("delta", GapDismissed)

	active, err := store.ListGaps(ctx, GapFilter{ExcludeTerminal: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	dismissed, err := store.ListGaps(ctx, GapFilter{Statuses: []GapStatus{GapDismissed}})
	require.NoError(t, err)
	require.Len(t, dismissed, 1)
	assert.Equal(t, "delta", dismissed[0].Topic)
}

func TestMemoryStore_ItemFlattening(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	doc := store.SeedDocument(Document{Title: "VPN setup", Content: "...", Tags: []string{"network"}})
	qa := store.SeedQA(CuratedQA{Question: "How do I rotate keys?", Answer: "Use the console."})

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	item := docs[0].Item()
	assert.Equal(t, KindDocument, item.Kind)
	assert.Equal(t, doc.ID, item.ID)
	assert.Equal(t, "VPN setup", item.Title)

	qas, err := store.ListQAs(ctx)
	require.NoError(t, err)
	require.Len(t, qas, 1)
	qitem := qas[0].Item()
	assert.Equal(t, KindQA, qitem.Kind)
	assert.Equal(t, qa.Question, qitem.Title)
	assert.Equal(t, qa.Answer, qitem.Content)
}
