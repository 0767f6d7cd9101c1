// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/pulse/ingestion"
	"github.com/poiesic/pulse/jobs"
	"github.com/poiesic/pulse/query"
)

// AppDeps carries the services the HTTP surface is built on. Token is
// optional; when set, every route requires a matching bearer token.
type AppDeps struct {
	Engine   *query.Engine
	Pipeline *ingestion.Pipeline
	Runner   *jobs.ImportRunner
	Tracker  *jobs.Tracker
	Token    string
}

// NewAppHandler builds the REST API over the given services.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Get("/health", handleHealth)

	r.Post("/ingest", handleIngest(deps))
	r.Post("/ingest/batch", handleIngestBatch(deps))

	r.Get("/search", handleSearch(deps))
	r.Post("/ask", handleAsk(deps))
	r.Post("/custom-search", handleCustomSearch(deps))
	r.Post("/reclassify", handleReclassify(deps))
	r.Get("/stats", handleStats(deps))
	r.Get("/topic/{topic}/summary", handleTopicSummary(deps))

	r.Get("/alerts/churn-risks", handleChurnRisks(deps))
	r.Get("/alerts/urgent", handleUrgentIssues(deps))
	r.Get("/alerts/upsell", handleUpsell(deps))
	r.Get("/alerts/detractors", handleDetractors(deps))
	r.Get("/alerts/promoters", handlePromoters(deps))

	r.Get("/jobs", handleListJobs(deps))
	r.Get("/jobs/{id}", handleGetJob(deps))
	r.Delete("/jobs/{id}", handleCancelJob(deps))

	return r
}

// BearerAuth rejects requests whose Authorization header does not carry the
// expected bearer token.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
