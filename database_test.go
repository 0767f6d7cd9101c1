package pulse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pulse/ai/mock"
	"github.com/poiesic/pulse/core"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new badger database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "pulse_db")
		db, err := NewDatabase(tmpDir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Repository())
		assert.NotNil(t, db.Provider())
		assert.NotNil(t, db.Tracker())
	})

	t.Run("create new sqlite database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "pulse_db")
		db, err := NewDatabase(tmpDir,
			WithBackend(BackendSQLite),
			WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer db.Close()

		id, err := db.Repository().InsertFeedback(context.Background(), &core.FeedbackItem{
			Text:   "works end to end",
			Source: core.SourceOther,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("error with unknown backend", func(t *testing.T) {
		db, err := NewDatabase(t.TempDir(),
			WithBackend("postgres"),
			WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		db, err := NewDatabase(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase("",
		WithInMemoryStorage(),
		WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	require.NoError(t, err)
	require.NotNil(t, pipeline)

	engine, err := db.NewQueryEngine()
	require.NoError(t, err)
	require.NotNil(t, engine)

	runner, err := db.NewImportRunner(pipeline)
	require.NoError(t, err)
	require.NotNil(t, runner)
	runner.Release()

	// The services share one repository: what the pipeline writes, the
	// engine finds.
	item, err := pipeline.IngestSingle(context.Background(), &core.FeedbackItem{
		Text:   "Shared repository check",
		Source: core.SourceOther,
	}, true)
	require.NoError(t, err)

	got, err := db.Repository().GetFeedback(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shared repository check", got.Text)
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, BackendBadger, cfg.Storage.Backend)
		assert.Equal(t, "pulse_data", cfg.Storage.Path)
		assert.Equal(t, ":8080", cfg.Server.Addr)
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		cfg := defaultAppConfig()
		cfg.Storage.Backend = BackendSQLite
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
		require.NoError(t, SaveConfig(path, cfg))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, BackendSQLite, loaded.Storage.Backend)
		assert.Equal(t, "text-embedding-3-small", loaded.AI.EmbeddingModel)
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: mongodb\n"), 0o644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
