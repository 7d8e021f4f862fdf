// Package config: membrain-specific configuration, defaults, and overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MembrainConfig holds the tunable parameters for a Brain instance, plus the
// operational knobs (db path, embedder selection) the cmd/membrain binary
// needs to construct one.
type MembrainConfig struct {
	DBPath           string  `yaml:"db_path"`
	CacheCapacity    int     `yaml:"cache_capacity"`
	BloomExpected    uint    `yaml:"bloom_expected"`
	BloomFPR         float64 `yaml:"bloom_fpr"`
	HNSWSeed         int64   `yaml:"hnsw_seed"`
	MaxContentTokens int     `yaml:"max_content_tokens"`

	// SnapshotPath is an optional SQLite file the embedding cache is
	// restored from on open and saved to on close. Empty disables it.
	SnapshotPath string `yaml:"snapshot_path"`

	// Embedder selects which embedder.Embedder implementation cmd/membrain
	// wires up: "hash" (local, no network) or "openai" (external). Any other
	// value, including "gemini", is rejected by cmd/membrain.
	Embedder       string `yaml:"embedder"`
	EmbeddingDim   int    `yaml:"embedding_dim"`
	EmbeddingModel string `yaml:"embedding_model"`
	APIKey         string `yaml:"api_key"`
}

// DefaultMembrainDBPath returns the default on-disk database directory,
// resolved relative to the running binary unless MEMBRAIN_DB_PATH is set.
func DefaultMembrainDBPath() string {
	if d := os.Getenv("MEMBRAIN_DB_PATH"); d != "" {
		return d
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "db", "membrain")
}

// DefaultMembrainConfig returns the specification's documented defaults.
func DefaultMembrainConfig() *MembrainConfig {
	return &MembrainConfig{
		DBPath:           DefaultMembrainDBPath(),
		CacheCapacity:    10000,
		BloomExpected:    10000,
		BloomFPR:         0.01,
		HNSWSeed:         1,
		MaxContentTokens: 2000,
		Embedder:         "hash",
		EmbeddingDim:     384,
	}
}

// LoadMembrainConfig builds a MembrainConfig starting from defaults,
// optionally overlaying a YAML file at path (ignored if it does not exist),
// then applying MEMBRAIN_*-prefixed environment variables.
func LoadMembrainConfig(path string) (*MembrainConfig, error) {
	cfg := DefaultMembrainConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

func (c *MembrainConfig) loadFromEnv() {
	if v := os.Getenv("MEMBRAIN_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MEMBRAIN_CACHE_CAPACITY"); v != "" {
		c.CacheCapacity = parseInt(v, c.CacheCapacity)
	}
	if v := os.Getenv("MEMBRAIN_BLOOM_EXPECTED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.BloomExpected = uint(n)
		}
	}
	if v := os.Getenv("MEMBRAIN_BLOOM_FPR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.BloomFPR = f
		}
	}
	if v := os.Getenv("MEMBRAIN_HNSW_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.HNSWSeed = n
		}
	}
	if v := os.Getenv("MEMBRAIN_MAX_CONTENT_TOKENS"); v != "" {
		c.MaxContentTokens = parseInt(v, c.MaxContentTokens)
	}
	if v := os.Getenv("MEMBRAIN_EMBEDDER"); v != "" {
		c.Embedder = v
	}
	if v := os.Getenv("MEMBRAIN_EMBEDDING_DIM"); v != "" {
		c.EmbeddingDim = parseInt(v, c.EmbeddingDim)
	}
	if v := os.Getenv("MEMBRAIN_EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("MEMBRAIN_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("MEMBRAIN_SNAPSHOT_PATH"); v != "" {
		c.SnapshotPath = v
	}
}
