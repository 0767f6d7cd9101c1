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


package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/pulse/ai"
	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/storage"
)

// defaultEmbedBatchSize is the chunk size used when batching embedding calls.
const defaultEmbedBatchSize = 10

// Pipeline orchestrates feedback intake: embedding, classification, and
// persistence. Safe for concurrent use.
type Pipeline struct {
	repo      storage.FeedbackRepository
	provider  ai.Provider
	batchSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithEmbedBatchSize sets the chunk size for batched embedding calls.
// Default is 10.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repo storage.FeedbackRepository, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		repo:      repo,
		provider:  provider,
		batchSize: defaultEmbedBatchSize,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// RawRecord is the normalized intake shape produced by loaders and accepted
// by IngestBatch. Zero-valued optional fields are simply absent.
type RawRecord struct {
	Text             string
	UserID           string
	Email            string
	SubscriptionType string
	MRR              *float64
	CompanyName      string
	Industry         string
	NPSScore         *int
	TicketID         string
	TicketPriority   string
	CreatedAt        time.Time
}

// profile builds a UserProfile from the record, or nil when no user id is set.
func (r *RawRecord) profile() *core.UserProfile {
	if r.UserID == "" {
		return nil
	}
	return &core.UserProfile{
		UserID:           r.UserID,
		Email:            r.Email,
		SubscriptionType: r.SubscriptionType,
		MRR:              r.MRR,
		CompanyName:      r.CompanyName,
		Industry:         r.Industry,
	}
}

// BatchProgress reports how far a batch run has advanced. Done counts every
// record that has been handled, whether it was persisted or lost to a failed
// embedding chunk; Succeeded and Failed partition it.
type BatchProgress struct {
	Done      int
	Succeeded int
	Failed    int
	Total     int
}

// BatchOptions holds optional parameters for batch ingestion.
type BatchOptions struct {
	// SkipClassification leaves items unclassified; embeddings are still
	// generated.
	SkipClassification bool

	// Progress, if set, is invoked after each handled record and after each
	// failed embedding chunk.
	Progress func(p BatchProgress)

	// IsCancelled, if set, is polled before each record. A true return stops
	// the run with ErrCancelled; already-persisted records stay persisted.
	IsCancelled func() bool
}

// IngestSingle embeds, classifies, and stores one feedback item. If
// skipClassification is true the item is stored unclassified.
// The stored item is returned with its assigned ID and embedding.
func (p *Pipeline) IngestSingle(ctx context.Context, item *core.FeedbackItem, skipClassification bool) (*core.FeedbackItem, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if err := core.ValidateFeedbackItem(item); err != nil {
		return nil, err
	}

	vector, err := p.provider.Embedder().EmbedText(ctx, item.Text)
	if err != nil {
		return nil, err
	}
	item.Embedding = vector

	if !skipClassification {
		classification := p.provider.Classifier().Classify(ctx, item.Text, item.Profile, item.NPSScore, item.Source)
		item.Classification = &classification
	}

	if _, err := p.repo.InsertFeedback(ctx, item); err != nil {
		return nil, err
	}

	p.logger.Debug("ingested feedback", "id", item.ID, "source", item.Source)
	return item, nil
}

// IngestBatch ingests multiple records. Embeddings are generated in chunks,
// classification runs per record, and records with empty text are dropped up
// front. A classification failure degrades to the sentinel, and a failed
// embedding chunk loses only its own records; in both cases the batch
// continues. Storage errors abort the run.
// Returns the items persisted so far, even on error.
func (p *Pipeline) IngestBatch(ctx context.Context, records []RawRecord, source core.Source, opts *BatchOptions) ([]*core.FeedbackItem, error) {
	if opts == nil {
		opts = &BatchOptions{}
	}

	kept := records[:0:0]
	for _, r := range records {
		if r.Text != "" {
			kept = append(kept, r)
		}
	}
	total := len(kept)

	p.logger.Info("starting batch ingestion",
		"source", source, "records", total, "skipped_empty", len(records)-total)

	var results []*core.FeedbackItem
	progress := BatchProgress{Total: total}
	report := func() {
		if opts.Progress != nil {
			opts.Progress(progress)
		}
	}

	for start := 0; start < total; start += p.batchSize {
		end := start + p.batchSize
		if end > total {
			end = total
		}
		chunk := kept[start:end]

		texts := make([]string, len(chunk))
		for i, r := range chunk {
			texts[i] = r.Text
		}

		vectors, err := p.provider.Embedder().EmbedTexts(ctx, texts)
		if err != nil {
			p.logger.Warn("embedding chunk failed, skipping its records",
				"records", len(chunk), "err", err)
			progress.Done += len(chunk)
			progress.Failed += len(chunk)
			report()
			continue
		}

		for i, r := range chunk {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			if opts.IsCancelled != nil && opts.IsCancelled() {
				return results, ErrCancelled
			}

			createdAt := r.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}

			item := &core.FeedbackItem{
				Text:           r.Text,
				Source:         source,
				CreatedAt:      createdAt,
				Profile:        r.profile(),
				NPSScore:       r.NPSScore,
				TicketID:       r.TicketID,
				TicketPriority: r.TicketPriority,
			}
			if i < len(vectors) {
				item.Embedding = vectors[i]
			}

			if !opts.SkipClassification {
				classification := p.provider.Classifier().Classify(ctx, r.Text, item.Profile, r.NPSScore, source)
				item.Classification = &classification
			}

			if _, err := p.repo.InsertFeedback(ctx, item); err != nil {
				return results, err
			}
			results = append(results, item)
			progress.Done++
			progress.Succeeded++
			report()
		}
	}

	p.logger.Info("batch ingestion complete",
		"source", source, "ingested", len(results), "failed", progress.Failed)
	return results, nil
}
