// Package storage defines the persistence contracts for feedback records and
// user profiles, plus the filter-matching and similarity-ranking helpers
// shared by every backend so that ranked order is identical regardless of
// where filtering happens.
package storage
