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


package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/pulse/ai"
	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/storage"
)

// noMatchMessage is the fixed response for questions that retrieve nothing.
const noMatchMessage = "No matching feedback found for your query."

// askRetrievalLimit caps how many items ground a natural language answer.
const askRetrievalLimit = 30

// Engine runs searches, questions, alerts, and analytics over stored
// feedback. It combines a feedback repository with the AI services for
// embedding, answering, and re-evaluation.
type Engine struct {
	repo     storage.FeedbackRepository
	provider ai.Provider
	logger   *slog.Logger
}

// NewEngine creates a query engine over the given repository and AI provider.
func NewEngine(repo storage.FeedbackRepository, provider ai.Provider) (*Engine, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	return &Engine{
		repo:     repo,
		provider: provider,
		logger:   slog.Default().With("component", "query-engine"),
	}, nil
}

// Params is the raw, transport-friendly form of a search. Enum filters are
// plain strings; ToQuery coerces them and rejects unknown values.
type Params struct {
	QueryText string

	Sources       []string
	Sentiments    []string
	Topics        []string
	UrgencyLevels []string
	Intents       []string

	SubscriptionTypes []string
	Industries        []string
	MinMRR            *float64
	MaxMRR            *float64
	MinNPS            *int
	MaxNPS            *int

	// DaysBack restricts results to the last N days. Zero means no window.
	DaysBack int

	Limit  int
	Offset int
}

// ToQuery coerces the raw params into a core.SearchQuery, resolving DaysBack
// against the current time.
func (p Params) ToQuery() (core.SearchQuery, error) {
	query := core.SearchQuery{
		QueryText:         p.QueryText,
		Topics:            p.Topics,
		SubscriptionTypes: p.SubscriptionTypes,
		Industries:        p.Industries,
		MinMRR:            p.MinMRR,
		MaxMRR:            p.MaxMRR,
		MinNPS:            p.MinNPS,
		MaxNPS:            p.MaxNPS,
		Limit:             p.Limit,
		Offset:            p.Offset,
	}

	for _, raw := range p.Sources {
		source, err := core.ParseSource(raw)
		if err != nil {
			return core.SearchQuery{}, fmt.Errorf("%w: source %q", ErrInvalidFilter, raw)
		}
		query.Sources = append(query.Sources, source)
	}
	for _, raw := range p.Sentiments {
		sentiment, err := core.ParseSentiment(raw)
		if err != nil {
			return core.SearchQuery{}, fmt.Errorf("%w: sentiment %q", ErrInvalidFilter, raw)
		}
		query.Sentiments = append(query.Sentiments, sentiment)
	}
	for _, raw := range p.UrgencyLevels {
		urgency, err := core.ParseUrgency(raw)
		if err != nil {
			return core.SearchQuery{}, fmt.Errorf("%w: urgency %q", ErrInvalidFilter, raw)
		}
		query.UrgencyLevels = append(query.UrgencyLevels, urgency)
	}
	for _, raw := range p.Intents {
		intent, err := core.ParseIntent(raw)
		if err != nil {
			return core.SearchQuery{}, fmt.Errorf("%w: intent %q", ErrInvalidFilter, raw)
		}
		query.Intents = append(query.Intents, intent)
	}

	if p.DaysBack > 0 {
		start := time.Now().UTC().AddDate(0, 0, -p.DaysBack)
		query.StartDate = &start
	}

	return query, nil
}

// Search runs a filtered, optionally semantic, search. When QueryText is
// present its embedding reranks the filtered set; an embedding failure
// degrades to filter-only search with a logged warning.
func (e *Engine) Search(ctx context.Context, params Params) (*core.SearchResult, error) {
	query, err := params.ToQuery()
	if err != nil {
		return nil, err
	}

	var queryEmbedding []float32
	if query.QueryText != "" {
		queryEmbedding, err = e.provider.Embedder().EmbedText(ctx, query.QueryText)
		if err != nil {
			e.logger.Warn("query embedding failed, falling back to filter-only search", "err", err)
			queryEmbedding = nil
		}
	}

	return e.repo.Search(ctx, query, queryEmbedding)
}

// Ask answers a natural language question grounded on retrieved feedback.
// Retrieval is capped at 30 items; when nothing matches, the fixed
// no-match message is returned without consulting the model. The count is
// the pre-pagination size of the matching set.
func (e *Engine) Ask(ctx context.Context, question string, params Params) (string, int, error) {
	params.QueryText = question
	params.Limit = askRetrievalLimit

	result, err := e.Search(ctx, params)
	if err != nil {
		return "", 0, err
	}
	if len(result.Items) == 0 {
		return noMatchMessage, result.TotalCount, nil
	}

	answer, err := e.provider.Answerer().Answer(ctx, question, result.Items, "")
	return answer, result.TotalCount, err
}
