// Package config loads and validates the trend miner run configuration.
//
// The pipeline configuration lives in a YAML file passed to the run command.
// Secrets (the Postgres DSN, embedding API keys) come from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/okonma/trendminer/internal/normalize"
)

// Storage modes.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Bucket intervals.
const (
	BucketDaily  = "daily"
	BucketHourly = "hourly"
)

// Noise handling policies.
const (
	NoiseDrop = "drop"
	NoiseKeep = "keep"
)

// Validation errors.
var (
	ErrMissingSeed       = errors.New("global_random_seed is required")
	ErrNoFeeds           = errors.New("at least one feed is required")
	ErrBadBucketInterval = errors.New("bucket_interval must be daily or hourly")
	ErrBadNoiseHandling  = errors.New("noise_handling must be drop or keep")
	ErrBadStorageMode    = errors.New("storage.mode must be file or postgres")
	ErrMissingDSN        = errors.New("postgres storage requires POSTGRES_DSN")
	ErrNonPositiveOption = errors.New("option must be positive")
	ErrNegativeEpsilon   = errors.New("cluster.epsilon must not be negative")
)

// FeedConfig describes one RSS/Atom feed to collect.
type FeedConfig struct {
	Name     string  `yaml:"name" json:"name"`
	URL      string  `yaml:"url" json:"url"`
	Weight   float64 `yaml:"weight" json:"weight"`
	Category string  `yaml:"category,omitempty" json:"category,omitempty"`
}

// EmbeddingConfig selects the embedding capability.
type EmbeddingConfig struct {
	// Model is the embedding model identifier. The reserved value "mock"
	// selects the deterministic offline provider.
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	RateLimit  int    `yaml:"rate_limit" json:"-"`
}

// ClusterConfig parameterizes dimensionality reduction and density clustering.
type ClusterConfig struct {
	MinTopicSize    int     `yaml:"min_topic_size" json:"min_topic_size"`
	MinClusterSize  int     `yaml:"min_cluster_size" json:"min_cluster_size"`
	TopNWords       int     `yaml:"top_n_words" json:"top_n_words"`
	ReduceState     int64   `yaml:"reduce_random_state" json:"reduce_random_state"`
	ReduceNeighbors int     `yaml:"reduce_n_neighbors" json:"reduce_n_neighbors"`
	ReduceDims      int     `yaml:"reduce_n_components" json:"reduce_n_components"`
	Epsilon         float64 `yaml:"epsilon" json:"epsilon"`
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Mode string `yaml:"mode" json:"mode"`
	// DSN is resolved from the environment, never from the YAML file.
	DSN string `yaml:"-" json:"-"`
}

// ExportConfig controls the parallel file dump when postgres is primary.
type ExportConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"-"`
}

// ScoreWeights are the narrative signal score component weights.
type ScoreWeights struct {
	Volume    float64 `yaml:"volume" json:"volume"`
	Velocity  float64 `yaml:"velocity" json:"velocity"`
	Source    float64 `yaml:"source" json:"source"`
	Watchlist float64 `yaml:"watchlist" json:"watchlist"`
}

// WatchlistConfig lists terms that earn topics a score bonus.
type WatchlistConfig struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Tickers  []string `yaml:"tickers" json:"tickers"`
}

// Config is the full run configuration.
type Config struct {
	GlobalRandomSeed  *int64          `yaml:"global_random_seed" json:"global_random_seed"`
	LookbackDays      int             `yaml:"lookback_days" json:"lookback_days"`
	MaxItemsPerFeed   int             `yaml:"max_items_per_feed" json:"max_items_per_feed"`
	MinItemsToCluster int             `yaml:"min_items_to_cluster" json:"min_items_to_cluster"`
	TopKTopics        int             `yaml:"top_k_topics" json:"top_k_topics"`
	BucketInterval    string          `yaml:"bucket_interval" json:"bucket_interval"`
	NoiseHandling     string          `yaml:"noise_handling" json:"noise_handling"`
	OutputDir         string          `yaml:"output_dir" json:"-"`
	FetchRPS          float64         `yaml:"fetch_rps" json:"-"`
	Feeds             []FeedConfig    `yaml:"feeds" json:"feeds"`
	Embedding         EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Cluster           ClusterConfig   `yaml:"cluster" json:"cluster"`
	Storage           StorageConfig   `yaml:"storage" json:"storage"`
	Export            ExportConfig    `yaml:"export" json:"export"`
	ScoreWeights      ScoreWeights    `yaml:"score_weights" json:"score_weights"`
	Watchlist         WatchlistConfig `yaml:"watchlist" json:"watchlist"`

	Env Environment `yaml:"-" json:"-"`
}

// Environment is the process environment overlay.
type Environment struct {
	AppEnv       string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN  string `env:"POSTGRES_DSN"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the YAML config at path, applies the environment overlay and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := env.Parse(&cfg.Env); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Storage.DSN = cfg.Env.PostgresDSN

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LookbackDays == 0 {
		c.LookbackDays = 7
	}

	if c.MaxItemsPerFeed == 0 {
		c.MaxItemsPerFeed = 50
	}

	if c.MinItemsToCluster == 0 {
		c.MinItemsToCluster = 30
	}

	if c.TopKTopics == 0 {
		c.TopKTopics = 10
	}

	if c.BucketInterval == "" {
		c.BucketInterval = BucketDaily
	}

	if c.NoiseHandling == "" {
		c.NoiseHandling = NoiseDrop
	}

	if c.OutputDir == "" {
		c.OutputDir = "out"
	}

	if c.FetchRPS == 0 {
		c.FetchRPS = 2
	}

	if c.Embedding.Model == "" {
		c.Embedding.Model = "mock"
	}

	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}

	if c.Embedding.RateLimit == 0 {
		c.Embedding.RateLimit = 2
	}

	if c.Cluster.MinTopicSize == 0 {
		c.Cluster.MinTopicSize = 15
	}

	// Density clustering falls back to the minimum topic size when unset.
	if c.Cluster.MinClusterSize == 0 {
		c.Cluster.MinClusterSize = c.Cluster.MinTopicSize
	}

	if c.Cluster.TopNWords == 0 {
		c.Cluster.TopNWords = 15
	}

	if c.Cluster.ReduceNeighbors == 0 {
		c.Cluster.ReduceNeighbors = 15
	}

	if c.Cluster.ReduceDims == 0 {
		c.Cluster.ReduceDims = 5
	}

	// Epsilon zero is meaningful (auto-derive via k-distance), no default.

	if c.Cluster.ReduceState == 0 && c.GlobalRandomSeed != nil {
		c.Cluster.ReduceState = *c.GlobalRandomSeed
	}

	if c.Storage.Mode == "" {
		c.Storage.Mode = StorageFile
	}

	if c.Export.OutputDir == "" {
		c.Export.OutputDir = c.OutputDir
	}

	if c.ScoreWeights == (ScoreWeights{}) {
		c.ScoreWeights = ScoreWeights{Volume: 0.25, Velocity: 0.35, Source: 0.30, Watchlist: 0.10}
	}

	for i := range c.Feeds {
		if c.Feeds[i].Weight == 0 {
			c.Feeds[i].Weight = 1.0
		}
	}
}

// Validate checks required options and enum values.
func (c *Config) Validate() error {
	if c.GlobalRandomSeed == nil {
		return ErrMissingSeed
	}

	if len(c.Feeds) == 0 {
		return ErrNoFeeds
	}

	if c.BucketInterval != BucketDaily && c.BucketInterval != BucketHourly {
		return ErrBadBucketInterval
	}

	if c.NoiseHandling != NoiseDrop && c.NoiseHandling != NoiseKeep {
		return ErrBadNoiseHandling
	}

	switch c.Storage.Mode {
	case StorageFile:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrBadStorageMode
	}

	// Defaults fill zero values before validation, so anything non-positive
	// here was set explicitly. A negative neighbor or dimension count would
	// otherwise reach the clustering stage and corrupt or crash it.
	positive := []struct {
		name  string
		value int
	}{
		{"lookback_days", c.LookbackDays},
		{"max_items_per_feed", c.MaxItemsPerFeed},
		{"min_items_to_cluster", c.MinItemsToCluster},
		{"top_k_topics", c.TopKTopics},
		{"embedding.dimensions", c.Embedding.Dimensions},
		{"embedding.rate_limit", c.Embedding.RateLimit},
		{"cluster.min_topic_size", c.Cluster.MinTopicSize},
		{"cluster.min_cluster_size", c.Cluster.MinClusterSize},
		{"cluster.top_n_words", c.Cluster.TopNWords},
		{"cluster.reduce_n_neighbors", c.Cluster.ReduceNeighbors},
		{"cluster.reduce_n_components", c.Cluster.ReduceDims},
	}

	for _, opt := range positive {
		if opt.value <= 0 {
			return fmt.Errorf("%w: %s", ErrNonPositiveOption, opt.name)
		}
	}

	if c.FetchRPS <= 0 {
		return fmt.Errorf("%w: fetch_rps", ErrNonPositiveOption)
	}

	if c.Cluster.Epsilon < 0 {
		return ErrNegativeEpsilon
	}

	return nil
}

// Seed returns the validated global random seed.
func (c *Config) Seed() int64 {
	if c.GlobalRandomSeed == nil {
		return 0
	}

	return *c.GlobalRandomSeed
}

// Hash returns the audit hash over the output-affecting configuration subset.
func (c *Config) Hash() string {
	feeds := make([]map[string]any, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		feeds = append(feeds, map[string]any{"name": f.Name, "url": f.URL, "weight": f.Weight})
	}

	return normalize.ConfigHash(map[string]any{
		"global_random_seed":   c.Seed(),
		"lookback_days":        c.LookbackDays,
		"max_items_per_feed":   c.MaxItemsPerFeed,
		"min_items_to_cluster": c.MinItemsToCluster,
		"top_k_topics":         c.TopKTopics,
		"bucket_interval":      c.BucketInterval,
		"noise_handling":       c.NoiseHandling,
		"embedding_model":      c.Embedding.Model,
		"embedding_dims":       c.Embedding.Dimensions,
		"min_topic_size":       c.Cluster.MinTopicSize,
		"min_cluster_size":     c.Cluster.MinClusterSize,
		"reduce_random_state":  c.Cluster.ReduceState,
		"reduce_n_neighbors":   c.Cluster.ReduceNeighbors,
		"reduce_n_components":  c.Cluster.ReduceDims,
		"epsilon":              c.Cluster.Epsilon,
		"feeds":                feeds,
	})
}
