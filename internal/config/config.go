// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultServerPort      = 8070
	defaultServerTimeout   = 30
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5
	defaultRedisAddress    = "localhost:6379"
	defaultSourceBaseURL   = "https://api.notion.com/v1"
	defaultSourceVersion   = "2022-06-28"
	defaultEmbedBatchSize  = 20
	defaultEmbedDimensions = 1536
	defaultSyncPageSize    = 100
)

// Config is the root configuration for the content sync service.
type Config struct {
	Debug     bool            `env:"APP_DEBUG" yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Source    SourceConfig    `yaml:"source"`
	Assets    AssetsConfig    `yaml:"assets"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Sync      SyncConfig      `yaml:"sync"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST"  yaml:"host"`
	Port         int           `env:"SERVER_PORT"  yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration for sync locks and event publishing.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB       int    `env:"REDIS_DB"             yaml:"db"`
	Events   bool   `env:"REDIS_EVENTS_ENABLED" yaml:"events"` // Feature flag for event publishing
}

// SearchConfig holds Elasticsearch configuration for the embedding vector index.
type SearchConfig struct {
	URL      string `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	Enabled  bool   `env:"SEARCH_INDEX_ENABLED"   yaml:"enabled"`
}

// SourceConfig holds the external CMS API configuration.
// Per-tenant API keys live on the tenant record; this only carries the
// shared endpoint settings.
type SourceConfig struct {
	BaseURL string        `env:"SOURCE_API_BASE_URL" yaml:"base_url"`
	Version string        `env:"SOURCE_API_VERSION"  yaml:"version"`
	Timeout time.Duration `yaml:"timeout"`
}

// AssetsConfig holds durable object-storage configuration for media backups.
type AssetsConfig struct {
	BaseURL string `env:"ASSET_STORE_URL"    yaml:"base_url"`
	Bucket  string `env:"ASSET_STORE_BUCKET" yaml:"bucket"`
	Token   string `env:"ASSET_STORE_TOKEN"  yaml:"token"`
	Enabled bool   `env:"ASSET_STORE_ENABLED" yaml:"enabled"`
}

// EmbeddingConfig holds the embedding endpoint configuration.
type EmbeddingConfig struct {
	BaseURL    string `env:"EMBEDDING_API_URL"   yaml:"base_url"`
	APIKey     string `env:"EMBEDDING_API_KEY"   yaml:"api_key"`
	Model      string `env:"EMBEDDING_MODEL"     yaml:"model"`
	Dimensions int    `env:"EMBEDDING_DIMENSIONS" yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// SyncConfig holds full-resync tuning parameters.
type SyncConfig struct {
	PageSize    int           `yaml:"page_size"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	Concurrency int           `yaml:"concurrency"`
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port <= 0 {
		return errors.New("database.port is required and must be positive")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Embedding.BaseURL == "" {
		return errors.New("embedding.base_url is required")
	}
	return nil
}

// Load reads configuration from path, applies defaults and env overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := loadFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.SetDefaults()
	// Env always wins, including over defaults
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultServerTimeout * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Database.Port == 0 {
		c.Database.Port = defaultDatabasePort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = defaultConnMaxLifetime * time.Minute
	}
	if c.Redis.Address == "" {
		c.Redis.Address = defaultRedisAddress
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultSourceBaseURL
	}
	if c.Source.Version == "" {
		c.Source.Version = defaultSourceVersion
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = defaultServerTimeout * time.Second
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = defaultEmbedBatchSize
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = defaultEmbedDimensions
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = defaultSyncPageSize
	}
	if c.Sync.LockTTL == 0 {
		c.Sync.LockTTL = 30 * time.Minute
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = 4
	}
}
