// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package config loads the recommender configuration from layered sources:
// struct defaults, an optional YAML file, then environment variables, with
// later layers overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/readcircle/recommender/internal/logging"
	"github.com/readcircle/recommender/internal/recommend"
)

// envPrefix namespaces the recommender's environment variables.
const envPrefix = "READCIRCLE_"

// DataConfig locates the rating and book metadata sources.
type DataConfig struct {
	// RatingsCSV is the path to the ratings CSV file. Mutually exclusive
	// with RatingsDB; the database wins when both are set.
	RatingsCSV string `koanf:"ratings_csv"`

	// RatingsDB is the path to a DuckDB database holding the ratings and
	// books tables.
	RatingsDB string `koanf:"ratings_db"`

	// BooksCSV is the path to the book metadata CSV file.
	BooksCSV string `koanf:"books_csv"`

	// BooksJSON is the path to a JSON book catalogue, used when BooksCSV
	// is empty.
	BooksJSON string `koanf:"books_json"`

	// ClubsCSV is the path to the club membership CSV file. Empty means
	// no club data; club operations then return empty lists.
	ClubsCSV string `koanf:"clubs_csv"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the
	// endpoint.
	Addr string `koanf:"addr"`
}

// ItemCFSection configures the item-based engine.
type ItemCFSection struct {
	// Threshold is the minimum ratings a book needs to enter the model.
	Threshold int `koanf:"threshold"`

	// MinSupport is the minimum co-rating readers per book pair.
	MinSupport int `koanf:"min_support"`

	// Similarity is "pearson" or "cosine".
	Similarity string `koanf:"similarity"`
}

// ContentSection configures the content-based engine.
type ContentSection struct {
	UsePublicationYear bool `koanf:"use_publication_year"`
}

// PopularitySection configures the popularity engine.
type PopularitySection struct {
	// Method is "average", "median" or "combination".
	Method string `koanf:"method"`
}

// EnginesConfig groups per-engine settings.
type EnginesConfig struct {
	ItemCF     ItemCFSection     `koanf:"itemcf"`
	Content    ContentSection    `koanf:"content"`
	Popularity PopularitySection `koanf:"popularity"`
}

// SnapshotsConfig controls model persistence.
type SnapshotsConfig struct {
	// Backend is "file" or "badger". Empty disables persistence.
	Backend string `koanf:"backend"`

	// Path is the snapshot directory.
	Path string `koanf:"path"`

	// Keep is how many versions to retain per engine when pruning.
	Keep int `koanf:"keep"`
}

// TrainingConfig controls the background trainer.
type TrainingConfig struct {
	// OnStartup trains (or restores) all engines before serving.
	OnStartup bool `koanf:"on_startup"`

	// Interval between retrains, e.g. "6h". Empty disables periodic
	// retraining.
	Interval string `koanf:"interval"`
}

// EvaluationConfig controls offline evaluation runs.
type EvaluationConfig struct {
	// TopN is the recommendation list length under evaluation.
	TopN int `koanf:"top_n"`

	// Seed drives the leave-one-out split.
	Seed int64 `koanf:"seed"`
}

// ServiceConfig bounds the facade's output.
type ServiceConfig struct {
	// TopN is the default recommendation list length.
	TopN int `koanf:"top_n"`
}

// Config is the root configuration.
type Config struct {
	Logging    logging.Config   `koanf:"logging"`
	Data       DataConfig       `koanf:"data"`
	Engines    EnginesConfig    `koanf:"engines"`
	Snapshots  SnapshotsConfig  `koanf:"snapshots"`
	Training   TrainingConfig   `koanf:"training"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Service    ServiceConfig    `koanf:"service"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: logging.DefaultConfig(),
		Engines: EnginesConfig{
			ItemCF: ItemCFSection{
				Threshold:  2,
				MinSupport: 2,
				Similarity: recommend.SimilarityPearson,
			},
			Content:    ContentSection{UsePublicationYear: true},
			Popularity: PopularitySection{Method: recommend.MethodCombination},
		},
		Snapshots: SnapshotsConfig{
			Backend: "file",
			Path:    "./models",
			Keep:    3,
		},
		Training: TrainingConfig{
			OnStartup: true,
			Interval:  "6h",
		},
		Evaluation: EvaluationConfig{
			TopN: 10,
			Seed: 1,
		},
		Service: ServiceConfig{TopN: 10},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// Load builds the configuration from defaults, the YAML file at
// READCIRCLE_CONFIG_PATH (or ./config.yaml if present), and READCIRCLE_*
// environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// envTransform maps READCIRCLE_* variables to config paths. Multi-word leaf
// keys need an explicit entry; everything else maps by replacing underscores
// with dots.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	explicit := map[string]string{
		"config_path":                          "", // consumed by configFilePath
		"data_ratings_csv":                     "data.ratings_csv",
		"data_ratings_db":                      "data.ratings_db",
		"data_books_csv":                       "data.books_csv",
		"data_books_json":                      "data.books_json",
		"data_clubs_csv":                       "data.clubs_csv",
		"metrics_addr":                         "metrics.addr",
		"engines_itemcf_threshold":             "engines.itemcf.threshold",
		"engines_itemcf_min_support":           "engines.itemcf.min_support",
		"engines_itemcf_similarity":            "engines.itemcf.similarity",
		"engines_content_use_publication_year": "engines.content.use_publication_year",
		"engines_popularity_method":            "engines.popularity.method",
		"training_on_startup":                  "training.on_startup",
		"evaluation_top_n":                     "evaluation.top_n",
		"evaluation_seed":                      "evaluation.seed",
		"service_top_n":                        "service.top_n",
	}
	if path, ok := explicit[key]; ok {
		return path
	}

	return strings.ReplaceAll(key, "_", ".")
}

// Validate rejects configurations that cannot be served.
func (c *Config) Validate() error {
	if c.Data.RatingsCSV == "" && c.Data.RatingsDB == "" {
		return fmt.Errorf("config: no rating source configured (data.ratings_csv or data.ratings_db)")
	}

	switch c.Engines.ItemCF.Similarity {
	case recommend.SimilarityPearson, recommend.SimilarityCosine:
	default:
		return fmt.Errorf("config: unknown similarity %q", c.Engines.ItemCF.Similarity)
	}

	switch c.Engines.Popularity.Method {
	case recommend.MethodAverage, recommend.MethodMedian, recommend.MethodCombination:
	default:
		return fmt.Errorf("config: unknown popularity method %q", c.Engines.Popularity.Method)
	}

	switch c.Snapshots.Backend {
	case "", "file", "badger":
	default:
		return fmt.Errorf("config: unknown snapshot backend %q", c.Snapshots.Backend)
	}

	if c.Engines.ItemCF.Threshold < 1 {
		return fmt.Errorf("config: itemcf threshold must be at least 1")
	}
	if c.Service.TopN < 1 {
		return fmt.Errorf("config: service top_n must be at least 1")
	}
	return nil
}
