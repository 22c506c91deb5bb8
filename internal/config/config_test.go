// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/readcircle/recommender/internal/recommend"
)

func validConfig() Config {
	cfg := Default()
	cfg.Data.RatingsCSV = "ratings.csv"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no rating source", func(c *Config) { c.Data.RatingsCSV = "" }, true},
		{"db source only", func(c *Config) { c.Data.RatingsCSV = ""; c.Data.RatingsDB = "ratings.duckdb" }, false},
		{"bad similarity", func(c *Config) { c.Engines.ItemCF.Similarity = "jaccard" }, true},
		{"bad popularity method", func(c *Config) { c.Engines.Popularity.Method = "mode" }, true},
		{"bad snapshot backend", func(c *Config) { c.Snapshots.Backend = "s3" }, true},
		{"no snapshot backend", func(c *Config) { c.Snapshots.Backend = "" }, false},
		{"zero threshold", func(c *Config) { c.Engines.ItemCF.Threshold = 0 }, true},
		{"zero top_n", func(c *Config) { c.Service.TopN = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"READCIRCLE_LOGGING_LEVEL", "logging.level"},
		{"READCIRCLE_DATA_RATINGS_CSV", "data.ratings_csv"},
		{"READCIRCLE_ENGINES_ITEMCF_MIN_SUPPORT", "engines.itemcf.min_support"},
		{"READCIRCLE_SERVICE_TOP_N", "service.top_n"},
		{"READCIRCLE_SNAPSHOTS_BACKEND", "snapshots.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransform(tt.env); got != tt.want {
				t.Errorf("envTransform(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
data:
  ratings_csv: from-file.csv
engines:
  itemcf:
    similarity: cosine
    min_support: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("READCIRCLE_CONFIG_PATH", path)
	t.Setenv("READCIRCLE_ENGINES_ITEMCF_MIN_SUPPORT", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// File overrides defaults.
	if cfg.Data.RatingsCSV != "from-file.csv" {
		t.Errorf("RatingsCSV = %q, want from-file.csv", cfg.Data.RatingsCSV)
	}
	if cfg.Engines.ItemCF.Similarity != recommend.SimilarityCosine {
		t.Errorf("Similarity = %q, want cosine", cfg.Engines.ItemCF.Similarity)
	}
	// Environment overrides the file.
	if cfg.Engines.ItemCF.MinSupport != 7 {
		t.Errorf("MinSupport = %d, want 7", cfg.Engines.ItemCF.MinSupport)
	}
	// Untouched values keep their defaults.
	if cfg.Service.TopN != 10 {
		t.Errorf("Service.TopN = %d, want default 10", cfg.Service.TopN)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("READCIRCLE_CONFIG_PATH", "")
	t.Setenv("READCIRCLE_DATA_RATINGS_CSV", "ratings.csv")
	t.Setenv("READCIRCLE_ENGINES_ITEMCF_SIMILARITY", "jaccard")

	if _, err := Load(); err == nil {
		t.Error("Load accepted invalid similarity")
	}
}
