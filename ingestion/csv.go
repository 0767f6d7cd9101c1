package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/poiesic/pulse/core"
)

// CSVColumns maps NPS survey CSV columns to record fields. Zero values fall
// back to the conventional column names.
type CSVColumns struct {
	Text   string // default "response"
	Score  string // default "score"
	UserID string // default "user_id"
	Email  string // default "email"
	Date   string // default "date"
}

func (c *CSVColumns) defaults() {
	if c.Text == "" {
		c.Text = "response"
	}
	if c.Score == "" {
		c.Score = "score"
	}
	if c.UserID == "" {
		c.UserID = "user_id"
	}
	if c.Email == "" {
		c.Email = "email"
	}
	if c.Date == "" {
		c.Date = "date"
	}
}

// LoadNPSCSV reads NPS survey responses from a CSV file into raw records.
// Rows with an empty response text are skipped. Pass nil columns for the
// conventional header names.
func LoadNPSCSV(path string, columns *CSVColumns) ([]RawRecord, error) {
	if columns == nil {
		columns = &CSVColumns{}
	}
	columns.defaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := readCSVRows(f)
	if err != nil {
		return nil, err
	}

	var records []RawRecord
	for _, row := range rows {
		text := row[columns.Text]
		if text == "" {
			continue
		}

		record := RawRecord{
			Text:   text,
			UserID: row[columns.UserID],
			Email:  row[columns.Email],
		}

		if raw := row[columns.Score]; raw != "" {
			score, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("parsing nps score %q: %w", raw, err)
			}
			if err := core.ValidateNPSScore(score); err != nil {
				return nil, err
			}
			record.NPSScore = &score
		}

		if raw := row[columns.Date]; raw != "" {
			record.CreatedAt, err = parseFlexibleTime(raw)
			if err != nil {
				return nil, fmt.Errorf("parsing date %q: %w", raw, err)
			}
		}

		records = append(records, record)
	}
	return records, nil
}

// IngestNPSCSV loads an NPS survey CSV and runs it through batch ingestion.
func (p *Pipeline) IngestNPSCSV(ctx context.Context, path string, opts *BatchOptions) ([]*core.FeedbackItem, error) {
	records, err := LoadNPSCSV(path, nil)
	if err != nil {
		return nil, err
	}
	return p.IngestBatch(ctx, records, core.SourceNPS, opts)
}

// ImportProfilesCSV imports user profiles from a CSV file for enrichment.
// Expected columns: user_id (required), email, subscription_type, mrr,
// company_name, industry. Rows without a user_id are skipped.
// Returns the number of profiles imported.
func (p *Pipeline) ImportProfilesCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := readCSVRows(f)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, row := range rows {
		if row["user_id"] == "" {
			continue
		}

		profile := &core.UserProfile{
			UserID:           row["user_id"],
			Email:            row["email"],
			SubscriptionType: row["subscription_type"],
			CompanyName:      row["company_name"],
			Industry:         row["industry"],
		}
		if raw := row["mrr"]; raw != "" {
			mrr, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return count, fmt.Errorf("parsing mrr %q: %w", raw, err)
			}
			profile.MRR = &mrr
		}

		if err := p.repo.UpsertProfile(ctx, profile); err != nil {
			return count, err
		}
		count++
	}

	p.logger.Info("imported user profiles", "count", count)
	return count, nil
}

// readCSVRows reads a headered CSV into maps keyed by column name.
// Missing cells read as "".
func readCSVRows(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseFlexibleTime accepts the timestamp formats seen in survey exports.
func parseFlexibleTime(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q", s)
}
