package gapdetect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gapd/internal/config"
	"github.com/fyrsmithlabs/gapd/internal/interaction"
	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/logging"
	"github.com/fyrsmithlabs/gapd/internal/reasoning"
)

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		WindowSize:     500,
		Lookback:       config.Duration(30 * 24 * time.Hour),
		MinClusterSize: 2,
		MaxClusters:    10,
		MaxConcurrent:  4,
	}
}

func newTestDetector(log interaction.Log, store knowledge.Store, client reasoning.Client) *Detector {
	return NewDetector(
		log,
		NewSynthesizer(client),
		NewMergeEngine(store, logging.Nop()),
		testDetectionConfig(),
		logging.Nop(),
	)
}

func recordN(log *interaction.MemoryLog, input string, n int) {
	for i := 0; i < n; i++ {
		log.Record(interaction.Event{Input: input, Confidence: interaction.ConfidenceLow})
	}
}

func TestDetector_Run_CreatesGaps(t *testing.T) {
	events := interaction.NewMemoryLog()
	recordN(events, "how do I configure webhook retries", 3)
	events.Record(interaction.Event{Input: "unrelated happy question", Confidence: interaction.ConfidenceHigh})

	store := knowledge.NewMemoryStore()
	client := reasoning.NewMockClient().
		Queue(`{"topic":"webhook retry configuration","content_type":"document","description":"retry setup is undocumented","suggested_tags":["webhooks"]}`, nil)

	report, err := newTestDetector(events, store, client).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Analyzed)
	assert.Equal(t, 1, report.PatternsFound)
	assert.Equal(t, 0, report.FailedClusters)
	require.Len(t, report.Gaps, 1)

	gap := report.Gaps[0]
	assert.Equal(t, "webhook retry configuration", gap.Topic)
	assert.Equal(t, 3, gap.Frequency)
	assert.Equal(t, knowledge.PriorityMedium, gap.Priority)
	assert.Equal(t, knowledge.GapIdentified, gap.Status)
}

func TestDetector_Run_SynthesisFailureIsolated(t *testing.T) {
	events := interaction.NewMemoryLog()
	recordN(events, "configure webhook retries properly", 3)
	recordN(events, "export billing report monthly", 2)

	store := knowledge.NewMemoryStore()
	// First cluster (by rank) fails, second succeeds.
	client := reasoning.NewMockClient().
		Queue("", errors.New("upstream timeout")).
		Queue(`{"topic":"billing report exports"}`, nil)

	// Serialize synthesis so the scripted order matches cluster rank.
	cfg := testDetectionConfig()
	cfg.MaxConcurrent = 1
	detector := NewDetector(events, NewSynthesizer(client), NewMergeEngine(store, logging.Nop()), cfg, logging.Nop())

	report, err := detector.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PatternsFound)
	assert.Equal(t, 1, report.FailedClusters)
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, "billing report exports", report.Gaps[0].Topic)
	// Defensive defaults applied to the sparse response.
	assert.Equal(t, knowledge.ContentDocument, report.Gaps[0].SuggestedContentType)
}

func TestDetector_Run_NoSignalsYieldsEmptyReport(t *testing.T) {
	events := interaction.NewMemoryLog()
	events.Record(interaction.Event{Input: "all good here thanks", Confidence: interaction.ConfidenceHigh})

	store := knowledge.NewMemoryStore()
	client := reasoning.NewMockClient()

	report, err := newTestDetector(events, store, client).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Analyzed)
	assert.Equal(t, 0, report.PatternsFound)
	assert.Empty(t, report.Gaps)
	assert.Empty(t, client.Calls())
}

func TestDetector_Run_MergesIntoExistingGap(t *testing.T) {
	events := interaction.NewMemoryLog()
	recordN(events, "cancel subscription before renewal", 2)

	store := knowledge.NewMemoryStore()
	existing, err := knowledge.NewContentGap("subscription cancellation", "", 3, nil)
	require.NoError(t, err)
	_, err = store.CreateGap(context.Background(), knowledge.SystemPrincipal(), existing)
	require.NoError(t, err)

	client := reasoning.NewMockClient().
		Queue(`{"topic":"cancellation","content_type":"qa"}`, nil)

	report, err := newTestDetector(events, store, client).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Gaps, 1)
	assert.Equal(t, "subscription cancellation", report.Gaps[0].Topic)
	assert.Equal(t, 5, report.Gaps[0].Frequency)
	assert.Equal(t, knowledge.PriorityHigh, report.Gaps[0].Priority)

	gaps, err := store.ListGaps(context.Background(), knowledge.GapFilter{})
	require.NoError(t, err)
	assert.Len(t, gaps, 1)
}

func TestDetector_Run_CancelledBeforeWrites(t *testing.T) {
	events := interaction.NewMemoryLog()
	recordN(events, "configure webhook retries properly", 2)

	store := knowledge.NewMemoryStore()
	client := reasoning.NewMockClient().Queue(`{"topic":"webhook retries"}`, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDetector(events, store, client).Run(ctx)
	require.Error(t, err)

	gaps, err := store.ListGaps(context.Background(), knowledge.GapFilter{})
	require.NoError(t, err)
	assert.Empty(t, gaps, "cancelled run must not write gaps")
}
