package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/pulse/jobs"
)

func handleListJobs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobType := r.URL.Query().Get("type")
		list := deps.Tracker.List(jobType)
		if list == nil {
			list = []jobs.Job{}
		}
		writeJSON(w, list)
	}
}

func handleGetJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, ok := deps.Tracker.Get(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeJSON(w, job)
	}
}

func handleCancelJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, ok := deps.Tracker.Get(id); !ok {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if !deps.Tracker.Cancel(id) {
			httpError(w, http.StatusConflict, "invalid_request_error", "job already finished")
			return
		}
		writeJSON(w, map[string]string{"status": "cancelled"})
	}
}
