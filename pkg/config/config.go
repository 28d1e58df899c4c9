// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Search, Encoder, Index, Redis, Kafka, Postgres,
// Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Search   SearchConfig   `yaml:"search"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Index    IndexConfig    `yaml:"index"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the search service.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SearchConfig enumerates the recognized tuning options of the hybrid
// search engine. The fusion constants are empirically chosen defaults,
// kept configurable rather than hard-coded.
type SearchConfig struct {
	CacheSize             int           `yaml:"cacheSize"`
	CacheTTL              time.Duration `yaml:"cacheTTL"`
	BranchTimeout         time.Duration `yaml:"branchTimeout"`
	VectorScoreMultiplier float64       `yaml:"vectorScoreMultiplier"`
	ReloadInterval        time.Duration `yaml:"reloadInterval"`
	MaxResultsPerBranch   int           `yaml:"maxResultsPerBranch"`
	DefaultTopK           int           `yaml:"defaultTopK"`
	MaxTopK               int           `yaml:"maxTopK"`
	SlowQueryWindow       int           `yaml:"slowQueryWindow"`
}

// EncoderConfig holds settings for the embedding encoder backend. BaseURL
// may point at any OpenAI-compatible embeddings endpoint.
type EncoderConfig struct {
	BaseURL    string        `yaml:"baseUrl"`
	APIKey     string        `yaml:"apiKey"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cacheSize"`
}

// IndexConfig holds the on-disk snapshot locations and the chunk corpus
// consumed during index builds.
type IndexConfig struct {
	DataDir      string `yaml:"dataDir"`
	ChunksPath   string `yaml:"chunksPath"`
	EmbedWorkers int    `yaml:"embedWorkers"`
}

// RedisConfig holds Redis connection parameters for the shared result
// cache tier.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CacheInvalidate string `yaml:"cacheInvalidate"`
	SearchEvents    string `yaml:"searchEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters for the search
// log store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides, and validates the result. Missing values fall back to
// defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development. The search defaults mirror the tuning the engine shipped
// with: 1000-entry cache, 1h TTL, 5m index freshness window, ×5 vector
// score multiplier.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Search: SearchConfig{
			CacheSize:             1000,
			CacheTTL:              time.Hour,
			BranchTimeout:         5 * time.Second,
			VectorScoreMultiplier: 5.0,
			ReloadInterval:        5 * time.Minute,
			MaxResultsPerBranch:   50,
			DefaultTopK:           10,
			MaxTopK:               100,
			SlowQueryWindow:       10,
		},
		Encoder: EncoderConfig{
			BaseURL:    "http://localhost:8001/v1",
			Model:      "paraphrase-multilingual-mpnet-base-v2",
			Dimensions: 768,
			Timeout:    30 * time.Second,
			CacheSize:  10000,
		},
		Index: IndexConfig{
			DataDir:      "./data",
			ChunksPath:   "./data/chunks.jsonl",
			EmbedWorkers: 8,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "deepsearch-group",
			Topics: KafkaTopics{
				CacheInvalidate: "cache-invalidate",
				SearchEvents:    "search-events",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "deepsearch",
			User:            "deepsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Search.CacheSize <= 0 {
		return fmt.Errorf("search.cacheSize must be positive, got %d", c.Search.CacheSize)
	}
	if c.Search.CacheTTL <= 0 {
		return fmt.Errorf("search.cacheTTL must be positive, got %v", c.Search.CacheTTL)
	}
	if c.Search.BranchTimeout <= 0 {
		return fmt.Errorf("search.branchTimeout must be positive, got %v", c.Search.BranchTimeout)
	}
	if c.Search.VectorScoreMultiplier <= 0 {
		return fmt.Errorf("search.vectorScoreMultiplier must be positive, got %v", c.Search.VectorScoreMultiplier)
	}
	if c.Search.MaxResultsPerBranch <= 0 {
		return fmt.Errorf("search.maxResultsPerBranch must be positive, got %d", c.Search.MaxResultsPerBranch)
	}
	if c.Search.DefaultTopK <= 0 || c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.defaultTopK must be in (0, maxTopK], got %d", c.Search.DefaultTopK)
	}
	if c.Encoder.Dimensions <= 0 {
		return fmt.Errorf("encoder.dimensions must be positive, got %d", c.Encoder.Dimensions)
	}
	return nil
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_ENCODER_BASE_URL"); v != "" {
		cfg.Encoder.BaseURL = v
	}
	if v := os.Getenv("DS_ENCODER_API_KEY"); v != "" {
		cfg.Encoder.APIKey = v
	}
	if v := os.Getenv("DS_ENCODER_MODEL"); v != "" {
		cfg.Encoder.Model = v
	}
	if v := os.Getenv("DS_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
