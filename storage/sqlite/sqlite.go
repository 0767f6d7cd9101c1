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


// Package sqlite implements the feedback repository on SQLite. It trades the
// key-value backend's write throughput for pushdown of structured filters
// into WHERE clauses and a file format that plain SQL tools can inspect.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is a fixed-width RFC3339 variant with microsecond precision, so
// lexicographic comparison of stored values matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store implements storage.FeedbackRepository on a SQLite database.
type Store struct {
	db *sql.DB
}

var _ storage.FeedbackRepository = (*Store)(nil)

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "pulse.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in
// ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Feedback ---

const feedbackColumns = `f.id, f.text, f.source, f.created_at, f.user_id,
	f.sentiment, f.topics, f.urgency, f.intent, f.summary, f.confidence,
	f.embedding, f.nps_score, f.ticket_id, f.ticket_priority,
	p.user_id, p.email, p.subscription_type, p.mrr, p.company_name,
	p.industry, p.signup_date, p.traits`

const feedbackFrom = ` FROM feedback f LEFT JOIN profiles p ON p.user_id = f.user_id`

// InsertFeedback validates and writes a feedback item. A missing ID is
// assigned, a missing timestamp defaults to now. The referenced profile is
// upserted in the same transaction.
func (s *Store) InsertFeedback(ctx context.Context, item *core.FeedbackItem) (string, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if err := core.ValidateFeedbackItem(item); err != nil {
		return "", err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var userID any
	if item.Profile != nil {
		if err := upsertProfileTx(ctx, tx, item.Profile); err != nil {
			return "", err
		}
		userID = item.Profile.UserID
	}

	var sentiment, topics, urgency, intent, summary any
	var confidence any
	if c := item.Classification; c != nil {
		sentiment = string(c.Sentiment)
		topics = marshalJSON(c.Topics)
		urgency = string(c.Urgency)
		intent = string(c.Intent)
		summary = c.Summary
		confidence = c.Confidence
	}

	var embedding any
	if len(item.Embedding) > 0 {
		embedding = marshalJSON(item.Embedding)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback (id, text, source, created_at, user_id, sentiment, topics, urgency, intent, summary, confidence, embedding, nps_score, ticket_id, ticket_priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Text, string(item.Source), item.CreatedAt.UTC().Format(timeLayout),
		userID, sentiment, topics, urgency, intent, summary, confidence,
		embedding, item.NPSScore, item.TicketID, item.TicketPriority,
	)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return item.ID, nil
}

// GetFeedback retrieves a single feedback item by ID.
func (s *Store) GetFeedback(ctx context.Context, id string) (*core.FeedbackItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+feedbackColumns+feedbackFrom+" WHERE f.id = ?", id)
	item, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	return item, err
}

// Search pushes structured filters into a WHERE clause, hydrates the
// surviving rows, and finishes ranking and pagination in Go so both storage
// backends order results identically.
func (s *Store) Search(ctx context.Context, query core.SearchQuery, queryEmbedding []float32) (*core.SearchResult, error) {
	where, args := buildWhere(&query)

	q := "SELECT " + feedbackColumns + feedbackFrom
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matched []*core.FeedbackItem
	for rows.Next() {
		item, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		// The LIKE-based topic pushdown can admit substring false
		// positives; the in-memory matcher is authoritative.
		if storage.MatchesQuery(item, &query) {
			matched = append(matched, item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	storage.SortByCreatedDesc(matched)
	if len(queryEmbedding) > 0 && query.QueryText != "" {
		storage.RankBySimilarity(matched, queryEmbedding)
	}

	return &core.SearchResult{
		Items:      storage.Paginate(matched, query.Offset, query.EffectiveLimit()),
		TotalCount: len(matched),
		Query:      query.QueryText,
	}, nil
}

// UpdateClassification overwrites the classification of a stored item.
func (s *Store) UpdateClassification(ctx context.Context, id string, classification core.Classification) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE feedback SET sentiment = ?, topics = ?, urgency = ?, intent = ?, summary = ?, confidence = ?
		WHERE id = ?`,
		string(classification.Sentiment), marshalJSON(classification.Topics),
		string(classification.Urgency), string(classification.Intent),
		classification.Summary, classification.Confidence, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetRecentForReclassification returns up to batchSize items, newest first.
func (s *Store) GetRecentForReclassification(ctx context.Context, batchSize int) ([]*core.FeedbackItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+feedbackColumns+feedbackFrom+" ORDER BY f.created_at DESC LIMIT ?", batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.FeedbackItem
	for rows.Next() {
		item, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// --- Profiles ---

// UpsertProfile creates or overwrites a user profile. Last write wins.
func (s *Store) UpsertProfile(ctx context.Context, profile *core.UserProfile) error {
	if err := core.ValidateProfile(profile); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := upsertProfileTx(ctx, tx, profile); err != nil {
		return err
	}
	return tx.Commit()
}

// GetProfile retrieves a user profile by user ID.
func (s *Store) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, subscription_type, mrr, company_name, industry, signup_date, traits
		FROM profiles WHERE user_id = ?`, userID)

	var p core.UserProfile
	var signupDate sql.NullString
	var traits string
	err := row.Scan(&p.UserID, &p.Email, &p.SubscriptionType, &p.MRR, &p.CompanyName, &p.Industry, &signupDate, &traits)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if signupDate.Valid {
		t, err := time.Parse(timeLayout, signupDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing signup_date: %w", err)
		}
		p.SignupDate = &t
	}
	if traits != "" && traits != "{}" {
		if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
			return nil, fmt.Errorf("%w: traits: %v", storage.ErrSerializationFailed, err)
		}
	}
	return &p, nil
}

func upsertProfileTx(ctx context.Context, tx *sql.Tx, p *core.UserProfile) error {
	var signupDate any
	if p.SignupDate != nil {
		signupDate = p.SignupDate.UTC().Format(timeLayout)
	}
	traits := "{}"
	if len(p.Traits) > 0 {
		traits = marshalJSON(p.Traits)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, subscription_type, mrr, company_name, industry, signup_date, traits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			subscription_type = excluded.subscription_type,
			mrr = excluded.mrr,
			company_name = excluded.company_name,
			industry = excluded.industry,
			signup_date = excluded.signup_date,
			traits = excluded.traits`,
		p.UserID, p.Email, p.SubscriptionType, p.MRR, p.CompanyName, p.Industry, signupDate, traits,
	)
	return err
}

// --- Row scanning and filter pushdown ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (*core.FeedbackItem, error) {
	var item core.FeedbackItem
	var createdAt string
	var userID, sentiment, topics, urgency, intent, summary sql.NullString
	var confidence sql.NullFloat64
	var embedding sql.NullString
	var pUserID, pEmail, pSubscription, pCompany, pIndustry, pSignup, pTraits sql.NullString
	var pMRR sql.NullFloat64

	err := row.Scan(
		&item.ID, &item.Text, (*string)(&item.Source), &createdAt, &userID,
		&sentiment, &topics, &urgency, &intent, &summary, &confidence,
		&embedding, &item.NPSScore, &item.TicketID, &item.TicketPriority,
		&pUserID, &pEmail, &pSubscription, &pMRR, &pCompany, &pIndustry, &pSignup, &pTraits,
	)
	if err != nil {
		return nil, err
	}

	item.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	if sentiment.Valid {
		c := &core.Classification{
			Sentiment:  core.Sentiment(sentiment.String),
			Urgency:    core.Urgency(urgency.String),
			Intent:     core.Intent(intent.String),
			Summary:    summary.String,
			Confidence: confidence.Float64,
		}
		if topics.Valid && topics.String != "" {
			if err := json.Unmarshal([]byte(topics.String), &c.Topics); err != nil {
				return nil, fmt.Errorf("%w: topics: %v", storage.ErrSerializationFailed, err)
			}
		}
		item.Classification = c
	}

	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &item.Embedding); err != nil {
			return nil, fmt.Errorf("%w: embedding: %v", storage.ErrSerializationFailed, err)
		}
	}

	if pUserID.Valid {
		p := &core.UserProfile{
			UserID:           pUserID.String,
			Email:            pEmail.String,
			SubscriptionType: pSubscription.String,
			CompanyName:      pCompany.String,
			Industry:         pIndustry.String,
		}
		if pMRR.Valid {
			mrr := pMRR.Float64
			p.MRR = &mrr
		}
		if pSignup.Valid {
			t, err := time.Parse(timeLayout, pSignup.String)
			if err != nil {
				return nil, fmt.Errorf("parsing signup_date: %w", err)
			}
			p.SignupDate = &t
		}
		if pTraits.Valid && pTraits.String != "" && pTraits.String != "{}" {
			if err := json.Unmarshal([]byte(pTraits.String), &p.Traits); err != nil {
				return nil, fmt.Errorf("%w: traits: %v", storage.ErrSerializationFailed, err)
			}
		}
		item.Profile = p
	} else if userID.Valid && userID.String != "" {
		item.Profile = &core.UserProfile{UserID: userID.String}
	}

	return &item, nil
}

func buildWhere(q *core.SearchQuery) (clauses []string, args []any) {
	addIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := strings.Repeat("?, ", len(values))
		clauses = append(clauses, column+" IN ("+placeholders[:len(placeholders)-2]+")")
		for _, v := range values {
			args = append(args, v)
		}
	}

	addIn("f.source", asStrings(q.Sources))
	addIn("f.sentiment", asStrings(q.Sentiments))
	addIn("f.urgency", asStrings(q.UrgencyLevels))
	addIn("f.intent", asStrings(q.Intents))
	addIn("p.subscription_type", q.SubscriptionTypes)
	addIn("p.industry", q.Industries)

	if len(q.Topics) > 0 {
		likes := make([]string, len(q.Topics))
		for i, topic := range q.Topics {
			likes[i] = "f.topics LIKE ?"
			args = append(args, `%"`+topic+`"%`)
		}
		clauses = append(clauses, "("+strings.Join(likes, " OR ")+")")
	}

	if q.MinMRR != nil {
		clauses = append(clauses, "p.mrr >= ?")
		args = append(args, *q.MinMRR)
	}
	if q.MaxMRR != nil {
		clauses = append(clauses, "p.mrr <= ?")
		args = append(args, *q.MaxMRR)
	}
	if q.MinNPS != nil {
		clauses = append(clauses, "f.nps_score >= ?")
		args = append(args, *q.MinNPS)
	}
	if q.MaxNPS != nil {
		clauses = append(clauses, "f.nps_score <= ?")
		args = append(args, *q.MaxNPS)
	}
	if q.StartDate != nil {
		clauses = append(clauses, "f.created_at >= ?")
		args = append(args, q.StartDate.UTC().Format(timeLayout))
	}
	if q.EndDate != nil {
		clauses = append(clauses, "f.created_at <= ?")
		args = append(args, q.EndDate.UTC().Format(timeLayout))
	}

	return clauses, args
}

func asStrings[T ~string](values []T) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
