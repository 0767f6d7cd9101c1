package pulse

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Storage backends selectable in configuration.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// AIConfig configures the embedding and classification endpoints.
type AIConfig struct {
	EmbeddingHost       string `yaml:"embedding_host"`
	ClassifierHost      string `yaml:"classifier_host"`
	EmbeddingModel      string `yaml:"embedding_model"`
	ClassifierModel     string `yaml:"classifier_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	// APIKeyEnv names the environment variable holding the API token.
	APIKeyEnv string `yaml:"api_key_env"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// TokenEnv names the environment variable holding the bearer token.
	// Empty disables authentication.
	TokenEnv string `yaml:"token_env"`
}

// IngestConfig tunes ingestion behavior.
type IngestConfig struct {
	EmbedBatchSize int `yaml:"embed_batch_size"`
	ImportWorkers  int `yaml:"import_workers"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Storage StorageConfig `yaml:"storage"`
	AI      AIConfig      `yaml:"ai"`
	Server  ServerConfig  `yaml:"server"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

// LoadConfig reads a config from the given path. A missing file yields
// defaults.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultAppConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if cfg.Storage.Backend != BackendBadger && cfg.Storage.Backend != BackendSQLite {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return &cfg, nil
}

// SaveConfig writes the config to the given path, creating directories as
// needed.
func SaveConfig(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultAppConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendBadger
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "pulse_data"
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "PULSE_API_TOKEN"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
