package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gapd/internal/config"
	"github.com/fyrsmithlabs/gapd/internal/gapdetect"
	"github.com/fyrsmithlabs/gapd/internal/interaction"
	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/logging"
	"github.com/fyrsmithlabs/gapd/internal/ranking"
	"github.com/fyrsmithlabs/gapd/internal/reasoning"
)

type fixture struct {
	server *Server
	store  *knowledge.MemoryStore
	events *interaction.MemoryLog
	client *reasoning.MockClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := knowledge.NewMemoryStore()
	events := interaction.NewMemoryLog()
	client := reasoning.NewMockClient()
	log := logging.Nop()

	detector := gapdetect.NewDetector(
		events,
		gapdetect.NewSynthesizer(client),
		gapdetect.NewMergeEngine(store, log),
		config.DetectionConfig{
			WindowSize:     500,
			Lookback:       config.Duration(30 * 24 * time.Hour),
			MinClusterSize: 2,
			MaxClusters:    10,
			MaxConcurrent:  2,
		},
		log,
	)
	ranker := ranking.NewRanker(store, client, config.RankingConfig{
		SearchMinScore:   0.3,
		SearchMaxResults: 6,
		RecommendMax:     8,
		SuggestMinScore:  0.5,
		SuggestMax:       3,
	}, log)

	server, err := NewServer(detector, ranker, log, config.ServerConfig{Host: "localhost", Port: 0})
	require.NoError(t, err)

	return &fixture{server: server, store: store, events: events, client: client}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Detect(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.events.Record(interaction.Event{
			Input:      "configure webhook retries properly",
			Confidence: interaction.ConfidenceLow,
		})
	}
	f.client.Queue(`{"topic":"webhook retries","content_type":"document"}`, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/gaps/detect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report gapdetect.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.Analyzed)
	assert.Equal(t, 1, report.PatternsFound)
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, "webhook retries", report.Gaps[0].Topic)
}

func TestServer_Search(t *testing.T) {
	f := newFixture(t)
	f.store.SeedDocument(knowledge.Document{
		Title:   "Export guide",
		Content: "How to export data.",
		Status:  knowledge.StatusPublished,
	})
	f.client.Queue(`{"intent":"export help","results":[{"index":0,"confidence":0.8,"highlight":"How to export data."}]}`, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/search", SearchRequest{Query: "export"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result ranking.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, ranking.StatusOK, result.Status)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Export guide", result.Results[0].Item.Title)
}

func TestServer_Search_EmptyQueryIs400(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/search", SearchRequest{Query: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.client.Calls())
}

func TestServer_Search_UpstreamFailureDegradesTo200(t *testing.T) {
	f := newFixture(t)
	f.store.SeedDocument(knowledge.Document{
		Title:   "Guide",
		Content: "content",
		Status:  knowledge.StatusPublished,
	})
	// No queued responses: the mock reports unavailable.

	rec := f.do(t, http.MethodPost, "/api/v1/search", SearchRequest{Query: "anything"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result ranking.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, ranking.StatusDegraded, result.Status)
	assert.Empty(t, result.Results)
}

func TestServer_Recommend(t *testing.T) {
	f := newFixture(t)
	f.store.SeedDocument(knowledge.Document{
		Title:   "Onboarding",
		Content: "steps",
		Status:  knowledge.StatusPublished,
	})
	f.client.Queue(`{"insight":"new user","results":[{"index":0,"confidence":0.6,"reason":"getting started"}]}`, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/recommend", ranking.UserContext{
		RecentQueries: []string{"how do I start"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The response uses the recommendations/insights wire names.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "recommendations")
	assert.Contains(t, raw, "insights")

	var result ranking.RecommendResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "new user", result.Insight)
	assert.Len(t, result.Results, 1)
}

func TestServer_Suggest_EmptyConversationIs400(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/suggest", SuggestRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
