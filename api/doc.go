// Package api exposes the feedback system over REST: single and batch
// ingestion, filtered and semantic search, natural language Q&A, proactive
// alerts, topic summaries, reclassification, statistics, and background job
// management. Batch ingestion is asynchronous; the response carries a job id
// that can be polled or cancelled under /jobs.
package api
