package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/poiesic/pulse/core"
)

// ticketID accepts both numeric and string ticket ids, which Zendesk exports
// mix freely.
type ticketID string

func (t *ticketID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = ticketID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = ticketID(n.String())
	return nil
}

// zendeskTicket mirrors the relevant fields of a Zendesk ticket export.
type zendeskTicket struct {
	ID          ticketID `json:"id"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Requester   struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"requester"`
	CreatedAt string `json:"created_at"`
}

// LoadZendeskJSON reads a Zendesk ticket export (a JSON array of tickets)
// into raw records. Tickets without a description are kept here and dropped
// by batch ingestion's empty-text filter.
func LoadZendeskJSON(path string) ([]RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tickets []zendeskTicket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, fmt.Errorf("parsing zendesk export: %w", err)
	}

	records := make([]RawRecord, 0, len(tickets))
	for _, ticket := range tickets {
		record := RawRecord{
			Text:           ticket.Description,
			TicketID:       string(ticket.ID),
			TicketPriority: ticket.Priority,
			UserID:         ticket.Requester.ID,
			Email:          ticket.Requester.Email,
		}
		if ticket.CreatedAt != "" {
			record.CreatedAt, err = parseFlexibleTime(ticket.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("ticket %s: %w", ticket.ID, err)
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// IngestZendeskJSON loads a Zendesk export and runs it through batch ingestion.
func (p *Pipeline) IngestZendeskJSON(ctx context.Context, path string, opts *BatchOptions) ([]*core.FeedbackItem, error) {
	records, err := LoadZendeskJSON(path)
	if err != nil {
		return nil, err
	}
	return p.IngestBatch(ctx, records, core.SourceZendesk, opts)
}
