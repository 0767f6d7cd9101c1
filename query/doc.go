// Package query is the read side of the feedback system: filtered and
// semantic search, natural language Q&A, proactive alert queries,
// reclassification, custom criteria matching, and window statistics.
//
// The Engine is a thin orchestrator. Filtering and ranking semantics live in
// the storage layer; language work lives behind the ai interfaces. Raw
// transport input arrives as Params, whose string filters are coerced into
// enums before any repository call.
package query
