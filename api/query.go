package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/pulse/query"
)

// AskRequest is a natural language question plus optional retrieval filters.
type AskRequest struct {
	Question          string   `json:"question"`
	Sources           []string `json:"sources,omitempty"`
	Sentiments        []string `json:"sentiments,omitempty"`
	Topics            []string `json:"topics,omitempty"`
	SubscriptionTypes []string `json:"subscription_types,omitempty"`
	MinMRR            *float64 `json:"min_mrr,omitempty"`
	MaxMRR            *float64 `json:"max_mrr,omitempty"`
	DaysBack          int      `json:"days_back,omitempty"`
}

// CustomSearchRequest evaluates feedback against an ad-hoc criteria question.
type CustomSearchRequest struct {
	Criteria string `json:"criteria"`
	Limit    int    `json:"limit,omitempty"`
}

func handleSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := query.Params{
			QueryText:         r.URL.Query().Get("query"),
			Sources:           splitList(r.URL.Query().Get("sources")),
			Sentiments:        splitList(r.URL.Query().Get("sentiments")),
			Topics:            splitList(r.URL.Query().Get("topics")),
			UrgencyLevels:     splitList(r.URL.Query().Get("urgency")),
			Intents:           splitList(r.URL.Query().Get("intents")),
			SubscriptionTypes: splitList(r.URL.Query().Get("subscription_types")),
			MinMRR:            parseOptFloat(r, "min_mrr"),
			MaxMRR:            parseOptFloat(r, "max_mrr"),
			MinNPS:            parseOptInt(r, "min_nps"),
			MaxNPS:            parseOptInt(r, "max_nps"),
			DaysBack:          parseIntParam(r, "days_back", 30),
			Limit:             parseIntParam(r, "limit", 0),
			Offset:            parseIntParam(r, "offset", 0),
		}

		result, err := deps.Engine.Search(r.Context(), params)
		if err != nil {
			if errors.Is(err, query.ErrInvalidFilter) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}

		writeJSON(w, toSearchResponse(result))
	}
}

func handleAsk(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}
		if req.DaysBack == 0 {
			req.DaysBack = 30
		}

		params := query.Params{
			Sources:           req.Sources,
			Sentiments:        req.Sentiments,
			Topics:            req.Topics,
			SubscriptionTypes: req.SubscriptionTypes,
			MinMRR:            req.MinMRR,
			MaxMRR:            req.MaxMRR,
			DaysBack:          req.DaysBack,
		}

		answer, matched, err := deps.Engine.Ask(r.Context(), req.Question, params)
		if err != nil {
			if errors.Is(err, query.ErrInvalidFilter) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to answer question: %v", err)
			return
		}

		writeJSON(w, map[string]any{
			"answer":         answer,
			"feedback_count": matched,
		})
	}
}

func handleCustomSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CustomSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Criteria == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "criteria is required")
			return
		}

		matches, err := deps.Engine.FindByCustomCriteria(r.Context(), req.Criteria, req.Limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "custom search failed: %v", err)
			return
		}

		// Only positive verdicts go over the wire.
		hits := make([]map[string]any, 0, len(matches))
		for _, m := range matches {
			if !m.Matches {
				continue
			}
			hits = append(hits, map[string]any{
				"feedback": toFeedbackJSON(m.Item),
				"matches":  true,
				"reason":   m.Reason,
			})
		}

		writeJSON(w, map[string]any{
			"criteria": req.Criteria,
			"matches":  hits,
		})
	}
}

func handleReclassify(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchSize := parseIntParam(r, "batch_size", 100)

		count, err := deps.Engine.ReclassifyAll(r.Context(), batchSize)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reclassification failed: %v", err)
			return
		}

		writeJSON(w, map[string]any{
			"count":   count,
			"message": fmt.Sprintf("Reclassified %d feedback items", count),
		})
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		daysBack := parseIntParam(r, "days_back", 30)

		stats, err := deps.Engine.Statistics(r.Context(), daysBack)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute statistics: %v", err)
			return
		}

		writeJSON(w, toStatsJSON(stats))
	}
}

func handleTopicSummary(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := chi.URLParam(r, "topic")
		daysBack := parseIntParam(r, "days_back", 30)

		summary, err := deps.Engine.TopicSummary(r.Context(), topic, daysBack)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to summarize topic: %v", err)
			return
		}

		writeJSON(w, map[string]string{
			"topic":   topic,
			"summary": summary,
		})
	}
}

func handleChurnRisks(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := query.ChurnRiskOptions{
			DaysBack: parseIntParam(r, "days_back", 0),
			Limit:    parseIntParam(r, "limit", 0),
		}
		if minMRR := parseOptFloat(r, "min_mrr"); minMRR != nil {
			opts.MinMRR = *minMRR
		}

		result, err := deps.Engine.ChurnRisks(r.Context(), opts)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "churn risk query failed: %v", err)
			return
		}
		writeJSON(w, toSearchResponse(result))
	}
}

func handleUrgentIssues(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Engine.UrgentIssues(r.Context(), query.UrgentIssueOptions{
			SubscriptionTypes: splitList(r.URL.Query().Get("subscription_types")),
			DaysBack:          parseIntParam(r, "days_back", 0),
			Limit:             parseIntParam(r, "limit", 0),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "urgent issues query failed: %v", err)
			return
		}
		writeJSON(w, toSearchResponse(result))
	}
}

func handleUpsell(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Engine.UpsellOpportunities(r.Context(), query.UpsellOptions{
			SubscriptionTypes: splitList(r.URL.Query().Get("subscription_types")),
			DaysBack:          parseIntParam(r, "days_back", 0),
			Limit:             parseIntParam(r, "limit", 0),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "upsell query failed: %v", err)
			return
		}
		writeJSON(w, toSearchResponse(result))
	}
}

func handleDetractors(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Engine.DetractorFeedback(r.Context(), query.NPSBandOptions{
			Threshold: parseIntParam(r, "max_nps", 0),
			DaysBack:  parseIntParam(r, "days_back", 0),
			Limit:     parseIntParam(r, "limit", 0),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "detractor query failed: %v", err)
			return
		}
		writeJSON(w, toSearchResponse(result))
	}
}

func handlePromoters(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Engine.PromoterFeedback(r.Context(), query.NPSBandOptions{
			Threshold: parseIntParam(r, "min_nps", 0),
			DaysBack:  parseIntParam(r, "days_back", 0),
			Limit:     parseIntParam(r, "limit", 0),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "promoter query failed: %v", err)
			return
		}
		writeJSON(w, toSearchResponse(result))
	}
}
