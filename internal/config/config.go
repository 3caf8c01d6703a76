// Package config loads service settings from the environment, with an
// optional .env file underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names.
const (
	BackendMemory  = "memory"
	BackendSpanner = "spanner"
	BackendRedis   = "redis"
	BackendBolt    = "bolt"
	BackendNATS    = "nats"
	BackendMinio   = "minio"
)

// Config holds application configuration.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	LogLevel        string
	LogDevelopment  bool
	ShutdownTimeout time.Duration

	MetadataBackend string
	SpannerDatabase string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	BoltPath        string
	NATSURL         string
	NATSKVBucket    string
	NATSSubject     string
	NATSRelay       bool

	AssetBackend  string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool
	AssetBucket   string
	LegacyBucket  string
	AssetPrefix   string
	LegacyFolder  string
	PublicBaseURL string

	MetadataPropagationDelay time.Duration
	ReconcileConcurrency     int
	DeleteMetadataFirst      bool
	KeepOriginalNames        bool
}

// Defaults registers every key with its default value on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)

	v.SetDefault("METADATA_BACKEND", BackendMemory)
	v.SetDefault("SPANNER_DATABASE", "projects/test-project/instances/dev-instance/databases/storefront-catalog-db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("BOLT_PATH", "catalog.db")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_KV_BUCKET", "asset_metadata")
	v.SetDefault("NATS_INVALIDATION_SUBJECT", "catalog.invalidate")
	v.SetDefault("NATS_RELAY", false)

	v.SetDefault("ASSET_BACKEND", BackendMemory)
	v.SetDefault("S3_ENDPOINT", "localhost:9000")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("ASSET_BUCKET", "assets")
	v.SetDefault("LEGACY_BUCKET", "assets")
	v.SetDefault("ASSET_PREFIX", "products")
	v.SetDefault("LEGACY_FOLDER", "products")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:9000")

	v.SetDefault("CATALOG_METADATA_PROPAGATION_DELAY", 400*time.Millisecond)
	v.SetDefault("RECONCILE_CONCURRENCY", 8)
	v.SetDefault("DELETE_METADATA_FIRST", false)
	v.SetDefault("KEEP_ORIGINAL_NAMES", false)
}

// New returns a viper instance reading the environment on top of the
// defaults. Flags may be bound to it before calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	Defaults(v)
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads the given files into the process environment. Missing
// files are skipped; variables already set are left alone.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads .env and the environment.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	return FromViper(New())
}

// FromViper builds and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		GRPCAddr:        v.GetString("GRPC_ADDR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogDevelopment:  v.GetBool("LOG_DEVELOPMENT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		MetadataBackend: strings.ToLower(v.GetString("METADATA_BACKEND")),
		SpannerDatabase: v.GetString("SPANNER_DATABASE"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		BoltPath:        v.GetString("BOLT_PATH"),
		NATSURL:         v.GetString("NATS_URL"),
		NATSKVBucket:    v.GetString("NATS_KV_BUCKET"),
		NATSSubject:     v.GetString("NATS_INVALIDATION_SUBJECT"),
		NATSRelay:       v.GetBool("NATS_RELAY"),

		AssetBackend:  strings.ToLower(v.GetString("ASSET_BACKEND")),
		S3Endpoint:    v.GetString("S3_ENDPOINT"),
		S3AccessKey:   v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:   v.GetString("S3_SECRET_KEY"),
		S3UseSSL:      v.GetBool("S3_USE_SSL"),
		AssetBucket:   v.GetString("ASSET_BUCKET"),
		LegacyBucket:  v.GetString("LEGACY_BUCKET"),
		AssetPrefix:   v.GetString("ASSET_PREFIX"),
		LegacyFolder:  v.GetString("LEGACY_FOLDER"),
		PublicBaseURL: v.GetString("PUBLIC_BASE_URL"),

		MetadataPropagationDelay: v.GetDuration("CATALOG_METADATA_PROPAGATION_DELAY"),
		ReconcileConcurrency:     v.GetInt("RECONCILE_CONCURRENCY"),
		DeleteMetadataFirst:      v.GetBool("DELETE_METADATA_FIRST"),
		KeepOriginalNames:        v.GetBool("KEEP_ORIGINAL_NAMES"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.MetadataBackend {
	case BackendMemory, BackendSpanner, BackendRedis, BackendBolt, BackendNATS:
	default:
		return fmt.Errorf("unknown METADATA_BACKEND %q", c.MetadataBackend)
	}
	switch c.AssetBackend {
	case BackendMemory, BackendMinio:
	default:
		return fmt.Errorf("unknown ASSET_BACKEND %q", c.AssetBackend)
	}
	if c.MetadataPropagationDelay < 0 {
		return fmt.Errorf("CATALOG_METADATA_PROPAGATION_DELAY must not be negative")
	}
	if c.ReconcileConcurrency <= 0 {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be positive, got %d", c.ReconcileConcurrency)
	}
	if c.AssetBackend == BackendMinio && c.S3Endpoint == "" {
		return fmt.Errorf("S3_ENDPOINT is required for the minio asset backend")
	}
	return nil
}
