package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pulse/ai/mock"
	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/ingestion"
	"github.com/poiesic/pulse/jobs"
	"github.com/poiesic/pulse/query"
	"github.com/poiesic/pulse/storage"
	"github.com/poiesic/pulse/storage/badger"
)

type testApp struct {
	handler  http.Handler
	repo     storage.FeedbackRepository
	tracker  *jobs.Tracker
	provider *mock.MockProvider
}

func setupApp(t *testing.T, token string) testApp {
	t.Helper()

	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)

	pipeline, err := ingestion.NewPipeline(repo, provider)
	require.NoError(t, err)

	engine, err := query.NewEngine(repo, provider)
	require.NoError(t, err)

	tracker := jobs.NewTracker()
	runner, err := jobs.NewImportRunner(pipeline, tracker)
	require.NoError(t, err)
	t.Cleanup(runner.Release)

	handler := NewAppHandler(AppDeps{
		Engine:   engine,
		Pipeline: pipeline,
		Runner:   runner,
		Tracker:  tracker,
		Token:    token,
	})

	return testApp{handler: handler, repo: repo, tracker: tracker, provider: provider}
}

func (a testApp) do(t *testing.T, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(method, url, reader))
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func seedFeedback(t *testing.T, repo storage.FeedbackRepository, texts ...string) {
	t.Helper()
	for i, text := range texts {
		_, err := repo.InsertFeedback(context.Background(), &core.FeedbackItem{
			Text:      text,
			Source:    core.SourceZendesk,
			CreatedAt: time.Now().UTC().Add(-time.Duration(i) * time.Hour),
			Classification: &core.Classification{
				Sentiment:  core.SentimentNegative,
				Topics:     []string{"bug"},
				Urgency:    core.UrgencyHigh,
				Intent:     core.IntentSupportNeeded,
				Summary:    "seeded",
				Confidence: 0.9,
			},
		})
		require.NoError(t, err)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(t, "")

	rr := app.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decodeBody(t, rr)["status"])
}

func TestBearerAuth(t *testing.T) {
	app := setupApp(t, "secret-token")

	rr := app.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	authed := httptest.NewRecorder()
	app.handler.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)
}

func TestIngestEndpoint(t *testing.T) {
	app := setupApp(t, "")

	t.Run("ingests and classifies", func(t *testing.T) {
		body := `{"text":"The app is broken and I want to cancel","source":"zendesk","user_id":"u1","email":"u1@example.com","mrr":250}`
		rr := app.do(t, http.MethodPost, "/ingest", body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decodeBody(t, rr)
		id, _ := resp["id"].(string)
		require.NotEmpty(t, id)
		require.NotNil(t, resp["classification"])

		item, err := app.repo.GetFeedback(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, item.Profile)
		assert.Equal(t, "u1", item.Profile.UserID)
		assert.NotEmpty(t, item.Embedding)
	})

	t.Run("rejects missing text", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/ingest", `{"source":"nps"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/ingest", `{"text":"hi","source":"telegraph"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/ingest", `{"text":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestIngestBatchEndpoint(t *testing.T) {
	app := setupApp(t, "")

	body := `{"source":"other","records":[{"text":"first"},{"text":"second"}]}`
	rr := app.do(t, http.MethodPost, "/ingest/batch", body)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	resp := decodeBody(t, rr)
	jobID, _ := resp["job_id"].(string)
	require.NotEmpty(t, jobID)

	// The job runs in the background; wait for it to finish.
	require.Eventually(t, func() bool {
		job, ok := app.tracker.Get(jobID)
		return ok && job.Status.Terminal()
	}, 10*time.Second, 10*time.Millisecond)

	job, _ := app.tracker.Get(jobID)
	assert.Equal(t, jobs.StatusCompleted, job.Status)

	result, err := app.repo.Search(context.Background(), core.SearchQuery{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
}

func TestSearchEndpoint(t *testing.T) {
	app := setupApp(t, "")
	seedFeedback(t, app.repo, "Checkout fails on mobile", "Cannot reset password")

	t.Run("returns matching items", func(t *testing.T) {
		rr := app.do(t, http.MethodGet, "/search?sentiments=negative&urgency=high", "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp searchResponseJSON
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.TotalCount)
		require.Len(t, resp.Items, 2)
		// Newest first.
		assert.Equal(t, "Checkout fails on mobile", resp.Items[0].Text)
	})

	t.Run("rejects bad filter values", func(t *testing.T) {
		rr := app.do(t, http.MethodGet, "/search?sentiments=angry", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAskEndpoint(t *testing.T) {
	app := setupApp(t, "")

	t.Run("no matches", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/ask", `{"question":"any security issues?"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody(t, rr)
		assert.Equal(t, "No matching feedback found for your query.", resp["answer"])
		assert.EqualValues(t, 0, resp["feedback_count"])
	})

	seedFeedback(t, app.repo, "Login is broken again")

	t.Run("answers with count", func(t *testing.T) {
		before := app.provider.GetMockEmbedder().CallCount()
		rr := app.do(t, http.MethodPost, "/ask", `{"question":"what is broken?"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody(t, rr)
		assert.Contains(t, resp["answer"], "based on 1 items")
		assert.EqualValues(t, 1, resp["feedback_count"])
		// A single retrieval backs both the answer and the count.
		assert.Equal(t, before+1, app.provider.GetMockEmbedder().CallCount())
	})

	t.Run("rejects empty question", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/ask", `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCustomSearchEndpoint(t *testing.T) {
	app := setupApp(t, "")
	seedFeedback(t, app.repo, "API rate limiting is painful", "Great onboarding")

	rr := app.do(t, http.MethodPost, "/custom-search", `{"criteria":"Is this about rate limiting?"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decodeBody(t, rr)
	assert.Equal(t, "Is this about rate limiting?", resp["criteria"])
	matches, ok := resp["matches"].([]any)
	require.True(t, ok)
	// The mock matcher keys on shared words; only the rate limiting item hits.
	require.Len(t, matches, 1)
}

func TestReclassifyEndpoint(t *testing.T) {
	app := setupApp(t, "")
	seedFeedback(t, app.repo, "Everything is broken")

	rr := app.do(t, http.MethodPost, "/reclassify?batch_size=10", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeBody(t, rr)
	assert.EqualValues(t, 1, resp["count"])
	assert.Equal(t, "Reclassified 1 feedback items", resp["message"])
}

func TestStatsEndpoint(t *testing.T) {
	app := setupApp(t, "")
	seedFeedback(t, app.repo, "one", "two", "three")

	rr := app.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp statsJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalCount)
	assert.Equal(t, 3, resp.BySentiment[core.SentimentNegative])
	assert.Equal(t, 3, resp.ByTopic["bug"])
	assert.Nil(t, resp.AvgNPS)
}

func TestTopicSummaryEndpoint(t *testing.T) {
	app := setupApp(t, "")

	rr := app.do(t, http.MethodGet, "/topic/billing/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody(t, rr)
	assert.Equal(t, "billing", resp["topic"])
	assert.Equal(t, "No feedback found for topic: billing", resp["summary"])
}

func TestAlertEndpoints(t *testing.T) {
	app := setupApp(t, "")
	seedFeedback(t, app.repo, "Server errors all day")

	for _, path := range []string{
		"/alerts/churn-risks",
		"/alerts/urgent",
		"/alerts/upsell",
		"/alerts/detractors",
		"/alerts/promoters",
	} {
		rr := app.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rr.Code, "%s: %s", path, rr.Body.String())

		var resp searchResponseJSON
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.Items)
	}

	// The seeded item is high urgency and recent, so the urgent alert sees it.
	rr := app.do(t, http.MethodGet, "/alerts/urgent", "")
	var resp searchResponseJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
}

func TestJobEndpoints(t *testing.T) {
	app := setupApp(t, "")

	t.Run("unknown job is 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/jobs/nope", "").Code)
		assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/jobs/nope", "").Code)
	})

	t.Run("list and get", func(t *testing.T) {
		job := app.tracker.Create(jobs.JobTypeBatchIngest)

		rr := app.do(t, http.MethodGet, "/jobs", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var list []jobs.Job
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, job.ID, list[0].ID)

		got := app.do(t, http.MethodGet, fmt.Sprintf("/jobs/%s", job.ID), "")
		require.Equal(t, http.StatusOK, got.Code)
	})

	t.Run("cancel flow", func(t *testing.T) {
		job := app.tracker.Create(jobs.JobTypeBatchIngest)

		rr := app.do(t, http.MethodDelete, "/jobs/"+job.ID, "")
		require.Equal(t, http.StatusOK, rr.Code)

		// Second cancel hits a terminal job.
		rr = app.do(t, http.MethodDelete, "/jobs/"+job.ID, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
