package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/ingestion"
)

// IngestRequest is the wire form of a single feedback submission.
type IngestRequest struct {
	Text             string   `json:"text"`
	Source           string   `json:"source"`
	UserID           string   `json:"user_id,omitempty"`
	Email            string   `json:"email,omitempty"`
	SubscriptionType string   `json:"subscription_type,omitempty"`
	MRR              *float64 `json:"mrr,omitempty"`
	CompanyName      string   `json:"company_name,omitempty"`
	Industry         string   `json:"industry,omitempty"`
	NPSScore         *int     `json:"nps_score,omitempty"`
	TicketID         string   `json:"ticket_id,omitempty"`
	TicketPriority   string   `json:"ticket_priority,omitempty"`
}

// BatchIngestRequest queues a list of records for background ingestion.
type BatchIngestRequest struct {
	Source  string              `json:"source"`
	Records []BatchIngestRecord `json:"records"`
}

// BatchIngestRecord is one record inside a batch submission.
type BatchIngestRecord struct {
	Text             string     `json:"text"`
	UserID           string     `json:"user_id,omitempty"`
	Email            string     `json:"email,omitempty"`
	SubscriptionType string     `json:"subscription_type,omitempty"`
	MRR              *float64   `json:"mrr,omitempty"`
	CompanyName      string     `json:"company_name,omitempty"`
	Industry         string     `json:"industry,omitempty"`
	NPSScore         *int       `json:"nps_score,omitempty"`
	TicketID         string     `json:"ticket_id,omitempty"`
	TicketPriority   string     `json:"ticket_priority,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

func handleIngest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}
		if req.Source == "" {
			req.Source = string(core.SourceNPS)
		}
		source, err := core.ParseSource(req.Source)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown source %q", req.Source)
			return
		}

		item := &core.FeedbackItem{
			Text:           req.Text,
			Source:         source,
			NPSScore:       req.NPSScore,
			TicketID:       req.TicketID,
			TicketPriority: req.TicketPriority,
		}
		if req.UserID != "" {
			item.Profile = &core.UserProfile{
				UserID:           req.UserID,
				Email:            req.Email,
				SubscriptionType: req.SubscriptionType,
				MRR:              req.MRR,
				CompanyName:      req.CompanyName,
				Industry:         req.Industry,
			}
		}

		ingested, err := deps.Pipeline.IngestSingle(r.Context(), item, false)
		if err != nil {
			if errors.Is(err, core.ErrInvalidFeedbackItem) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid feedback: %v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to ingest feedback: %v", err)
			return
		}

		writeJSON(w, map[string]any{
			"id":             ingested.ID,
			"classification": toClassificationJSON(ingested.Classification),
			"message":        "Feedback ingested and classified successfully",
		})
	}
}

func handleIngestBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 10*maxRequestBodySize)
		defer r.Body.Close()

		var req BatchIngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Records) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "records is required and must not be empty")
			return
		}
		if req.Source == "" {
			req.Source = string(core.SourceOther)
		}
		source, err := core.ParseSource(req.Source)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown source %q", req.Source)
			return
		}

		records := make([]ingestion.RawRecord, 0, len(req.Records))
		for _, rec := range req.Records {
			raw := ingestion.RawRecord{
				Text:             rec.Text,
				UserID:           rec.UserID,
				Email:            rec.Email,
				SubscriptionType: rec.SubscriptionType,
				MRR:              rec.MRR,
				CompanyName:      rec.CompanyName,
				Industry:         rec.Industry,
				NPSScore:         rec.NPSScore,
				TicketID:         rec.TicketID,
				TicketPriority:   rec.TicketPriority,
			}
			if rec.CreatedAt != nil {
				raw.CreatedAt = *rec.CreatedAt
			}
			records = append(records, raw)
		}

		job, err := deps.Runner.SubmitBatch(records, source)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to queue batch: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": job.ID,
			"status": string(job.Status),
		})
	}
}
