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


package pulse

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/pulse/ai"
	"github.com/poiesic/pulse/ai/openai"
	"github.com/poiesic/pulse/ingestion"
	"github.com/poiesic/pulse/jobs"
	"github.com/poiesic/pulse/query"
	"github.com/poiesic/pulse/storage"
	"github.com/poiesic/pulse/storage/badger"
	"github.com/poiesic/pulse/storage/sqlite"
)

// Database bundles a feedback repository with the AI provider and hands out
// the services built on them.
type Database struct {
	repo     storage.FeedbackRepository
	provider ai.Provider
	tracker  *jobs.Tracker
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	backend  string
	inMemory bool
	aiConfig *ai.Config
	provider ai.Provider
}

// WithBackend selects the storage backend, BackendBadger or BackendSQLite.
func WithBackend(backend string) DatabaseOption {
	return func(o *databaseOptions) {
		o.backend = backend
	}
}

// WithInMemoryStorage opens the badger backend in memory. Intended for tests.
func WithInMemoryStorage() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithAIConfig overrides the AI endpoint configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider instead of constructing one
// from configuration. The Database takes ownership and closes it.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// NewDatabase opens the storage backend at dataDir and wires up the AI
// provider.
func NewDatabase(dataDir string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		backend:  BackendBadger,
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	var repo storage.FeedbackRepository
	switch options.backend {
	case BackendBadger:
		backend, err := badger.OpenBackend(dataDir, options.inMemory)
		if err != nil {
			return nil, err
		}
		repo, err = badger.NewRepository(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
	case BackendSQLite:
		store, err := sqlite.Open(dataDir)
		if err != nil {
			return nil, err
		}
		repo = store
	default:
		return nil, fmt.Errorf("unknown storage backend %q", options.backend)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repo.Close()
			return nil, err
		}
	}

	return &Database{
		repo:     repo,
		provider: provider,
		tracker:  jobs.NewTracker(),
		logger:   slog.Default(),
	}, nil
}

// NewDatabaseFromConfig opens a Database according to an application config.
func NewDatabaseFromConfig(cfg *AppConfig, opts ...DatabaseOption) (*Database, error) {
	var aiOpts []ai.ConfigOption
	if cfg.AI.EmbeddingHost != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingHost(cfg.AI.EmbeddingHost))
	}
	if cfg.AI.ClassifierHost != "" {
		aiOpts = append(aiOpts, ai.WithClassifierHost(cfg.AI.ClassifierHost))
	}
	if cfg.AI.EmbeddingModel != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingModel(cfg.AI.EmbeddingModel))
	}
	if cfg.AI.ClassifierModel != "" {
		aiOpts = append(aiOpts, ai.WithClassifierModel(cfg.AI.ClassifierModel))
	}
	if cfg.AI.EmbeddingDimensions > 0 {
		aiOpts = append(aiOpts, ai.WithEmbeddingDimensions(cfg.AI.EmbeddingDimensions))
	}
	if token := os.Getenv(cfg.AI.APIKeyEnv); token != "" {
		aiOpts = append(aiOpts, ai.WithAPIToken(token))
	}
	aiConfig := ai.NewConfig(aiOpts...)

	combined := append([]DatabaseOption{
		WithBackend(cfg.Storage.Backend),
		WithAIConfig(aiConfig),
	}, opts...)
	return NewDatabase(cfg.Storage.Path, combined...)
}

func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.repo.Close(); err != nil {
		db.logger.Error("error closing feedback repository", "err", err)
		return err
	}
	return nil
}

// Repository returns the underlying feedback repository.
func (db *Database) Repository() storage.FeedbackRepository {
	return db.repo
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.Provider {
	return db.provider
}

// Tracker returns the shared background job tracker.
func (db *Database) Tracker() *jobs.Tracker {
	return db.tracker
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.repo, db.provider, opts...)
}

func (db *Database) NewQueryEngine() (*query.Engine, error) {
	return query.NewEngine(db.repo, db.provider)
}

// NewImportRunner builds a background import runner sharing the database's
// job tracker. Callers must Release it when done.
func (db *Database) NewImportRunner(pipeline *ingestion.Pipeline) (*jobs.ImportRunner, error) {
	return jobs.NewImportRunner(pipeline, db.tracker)
}
