// Package ingestion provides the feedback intake pipeline.
//
// The Pipeline type manages the ingestion workflow for feedback items:
//   - generating embeddings (batched for efficiency)
//   - classifying content through the AI gateway
//   - persisting items and referenced user profiles
//
// Loaders convert external formats (NPS survey CSVs, Zendesk JSON exports,
// user profile CSVs) into the pipeline's record shape. Classification
// failures degrade to the sentinel classification and never abort a batch.
package ingestion
