package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Clustering modes.
const (
	ModeDBSCAN  = "dbscan"
	ModeHDBSCAN = "hdbscan"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// FusionWeights are the per-view weights of the vector fuser.
type FusionWeights struct {
	Outline   float64 `yaml:"outline"`
	Overview  float64 `yaml:"overview"`
	HighLevel float64 `yaml:"high_level"`
}

// Sum returns the total weight.
func (w FusionWeights) Sum() float64 {
	return w.Outline + w.Overview + w.HighLevel
}

// Slice returns the weights in fusion order: outline, overview, high-level.
func (w FusionWeights) Slice() []float64 {
	return []float64{w.Outline, w.Overview, w.HighLevel}
}

// PipelineConfig holds the tunable parameters of the fuser, the reducer and
// the cluster engine. It is passed explicitly to their constructors.
type PipelineConfig struct {
	Mode                string        `yaml:"cluster_mode"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	MinSamples          int           `yaml:"min_samples"`
	MinClusterSize      int           `yaml:"min_cluster_size"`
	UseReduction        bool          `yaml:"use_reduction"`
	VarianceRetained    float64       `yaml:"pca_variance_retained"`
	FusionWeights       FusionWeights `yaml:"fusion_weights"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Endpoints   []string `yaml:"endpoints"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	BatchSize   int      `yaml:"batch_size"`
	Concurrency int      `yaml:"concurrency"`
	RateLimitMs int      `yaml:"rate_limit_ms"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	MaxRetries  int      `yaml:"max_retries"`
	HashDim     int      `yaml:"hash_dim"`
}

// Config holds all application configuration.
type Config struct {
	StoreDriver string `yaml:"store_driver"`
	SQLitePath  string `yaml:"sqlite_path"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	InputCSVPath   string `yaml:"input_csv_path"`
	CleanedCSVPath string `yaml:"cleaned_csv_path"`
	OutputCSVPath  string `yaml:"output_csv_path"`

	APIAddr string `yaml:"api_addr"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// Load reads the .env file, overlays the optional YAML file named by path
// (or CONFIG_FILE when path is empty), then applies environment variables.
// Environment variables win over YAML, YAML wins over defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyModeDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		StoreDriver: DriverSQLite,
		SQLitePath:  "./data/airbnb.db",

		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "airbnb",
		PostgresPassword: "airbnb",
		PostgresDB:       "airbnb",
		PostgresSSLMode:  "disable",

		InputCSVPath:   "./data/listings.csv",
		CleanedCSVPath: "./data/cleaned_listings.csv",
		OutputCSVPath:  "./data/clustered_listings.csv",

		APIAddr: ":8000",

		Embedding: EmbeddingConfig{
			Provider:    ProviderOpenAI,
			Model:       "nomic-embed-text",
			Endpoints:   []string{"http://localhost:11434/v1"},
			APIKeyEnv:   "OPENAI_API_KEY",
			BatchSize:   32,
			Concurrency: 1,
			TimeoutSecs: 30,
			MaxRetries:  3,
			HashDim:     256,
		},
		Pipeline: PipelineConfig{
			SimilarityThreshold: 0.93,
			MinClusterSize:      2,
			VarianceRetained:    0.95,
			FusionWeights:       FusionWeights{Outline: 0.5, Overview: 0.3, HighLevel: 0.2},
		},
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderHash:
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.Embedding.Provider))
	}
	if c.Embedding.BatchSize < 1 {
		errs = append(errs, errors.New("EMBEDDING_BATCH_SIZE must be at least 1"))
	}

	p := c.Pipeline
	switch p.Mode {
	case ModeDBSCAN, ModeHDBSCAN:
	default:
		errs = append(errs, fmt.Errorf("unknown CLUSTER_MODE %q", p.Mode))
	}
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1], got %v", p.SimilarityThreshold))
	}
	if p.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("MIN_SAMPLES must be at least 1, got %d", p.MinSamples))
	}
	if p.MinClusterSize < 2 {
		errs = append(errs, fmt.Errorf("MIN_CLUSTER_SIZE must be at least 2, got %d", p.MinClusterSize))
	}
	if p.VarianceRetained <= 0 || p.VarianceRetained > 1 {
		errs = append(errs, fmt.Errorf("PCA_VARIANCE_RETAINED must be in (0, 1], got %v", p.VarianceRetained))
	}

	return errors.Join(errs...)
}

func applyEnv(c *Config) error {
	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)

	c.InputCSVPath = getEnv("INPUT_CSV_PATH", c.InputCSVPath)
	c.CleanedCSVPath = getEnv("CLEANED_CSV_PATH", c.CleanedCSVPath)
	c.OutputCSVPath = getEnv("OUTPUT_CSV_PATH", c.OutputCSVPath)
	c.APIAddr = getEnv("API_ADDR", c.APIAddr)

	e := &c.Embedding
	e.Provider = strings.ToLower(getEnv("EMBEDDING_PROVIDER", e.Provider))
	e.Model = getEnv("EMBEDDING_MODEL", e.Model)
	if v := os.Getenv("EMBEDDING_ENDPOINTS"); v != "" {
		e.Endpoints = splitList(v)
	}
	e.APIKeyEnv = getEnv("EMBEDDING_API_KEY_ENV", e.APIKeyEnv)
	e.BatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", e.BatchSize)
	e.Concurrency = getEnvInt("EMBEDDING_CONCURRENCY", e.Concurrency)
	e.RateLimitMs = getEnvInt("EMBEDDING_RATE_LIMIT_MS", e.RateLimitMs)
	e.TimeoutSecs = getEnvInt("EMBEDDING_TIMEOUT_SECS", e.TimeoutSecs)
	e.MaxRetries = getEnvInt("EMBEDDING_MAX_RETRIES", e.MaxRetries)
	e.HashDim = getEnvInt("HASH_EMBEDDING_DIM", e.HashDim)

	p := &c.Pipeline
	p.Mode = strings.ToLower(getEnv("CLUSTER_MODE", p.Mode))
	p.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", p.SimilarityThreshold)
	p.MinSamples = getEnvInt("MIN_SAMPLES", p.MinSamples)
	p.MinClusterSize = getEnvInt("MIN_CLUSTER_SIZE", p.MinClusterSize)
	p.UseReduction = getEnvBool("USE_REDUCTION", p.UseReduction)
	p.VarianceRetained = getEnvFloat("PCA_VARIANCE_RETAINED", p.VarianceRetained)
	if v := os.Getenv("FUSION_WEIGHTS"); v != "" {
		w, err := ParseFusionWeights(v)
		if err != nil {
			return err
		}
		p.FusionWeights = w
	}
	return nil
}

// applyModeDefaults fills settings whose default depends on the clustering
// mode: reduction without an explicit mode means hdbscan, and min_samples
// defaults to 2 for dbscan and 1 for hdbscan.
func applyModeDefaults(c *Config) {
	p := &c.Pipeline
	if p.Mode == "" {
		p.Mode = ModeDBSCAN
		if p.UseReduction {
			p.Mode = ModeHDBSCAN
		}
	}
	if p.MinSamples == 0 {
		p.MinSamples = 2
		if p.Mode == ModeHDBSCAN {
			p.MinSamples = 1
		}
	}
}

// ParseFusionWeights parses "outline,overview,high_level".
func ParseFusionWeights(s string) (FusionWeights, error) {
	parts := splitList(s)
	if len(parts) != 3 {
		return FusionWeights{}, fmt.Errorf("FUSION_WEIGHTS needs 3 comma-separated values, got %q", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(f) {
			return FusionWeights{}, fmt.Errorf("FUSION_WEIGHTS: invalid weight %q", p)
		}
		vals[i] = f
	}
	return FusionWeights{Outline: vals[0], Overview: vals[1], HighLevel: vals[2]}, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
