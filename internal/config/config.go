package config

import (
	"fmt"
	"strings"

	"github.com/hkloudou/docpatch/internal/gateway"
	"github.com/hkloudou/docpatch/internal/merge"
	"github.com/hkloudou/docpatch/internal/storage"
	"golang.org/x/time/rate"
)

// Config represents docpatch configuration, shared through Redis or read
// from a config file.
type Config struct {
	Name             string `json:"Name" mapstructure:"name" yaml:"name"`
	Store            string `json:"Store" mapstructure:"store" yaml:"store"` // "memory" | "file" | "redis" | "oss" | "cosmos"
	BasePath         string `json:"BasePath,omitempty" mapstructure:"base_path" yaml:"base_path,omitempty"`
	RedisURL         string `json:"RedisURL,omitempty" mapstructure:"redis_url" yaml:"redis_url,omitempty"`
	Endpoint         string `json:"Endpoint,omitempty" mapstructure:"endpoint" yaml:"endpoint,omitempty"` // OSS or Cosmos endpoint
	Bucket           string `json:"Bucket,omitempty" mapstructure:"bucket" yaml:"bucket,omitempty"`
	AccessKey        string `json:"AccessKey,omitempty" mapstructure:"access_key" yaml:"access_key,omitempty"` // OSS access key or Cosmos account key
	SecretKey        string `json:"SecretKey,omitempty" mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	AESPwd           string `json:"AESPwd,omitempty" mapstructure:"aes_pwd" yaml:"aes_pwd,omitempty"` // encryption at rest for file and oss
	Internal         bool   `json:"Internal,omitempty" mapstructure:"internal" yaml:"internal,omitempty"`
	Database         string `json:"Database,omitempty" mapstructure:"database" yaml:"database,omitempty"`
	ConnectionString string `json:"ConnectionString,omitempty" mapstructure:"connection_string" yaml:"connection_string,omitempty"`
	PartitionKeyPath string `json:"PartitionKeyPath,omitempty" mapstructure:"partition_key_path" yaml:"partition_key_path,omitempty"`

	MaxRetries int     `json:"MaxRetries" mapstructure:"max_retries" yaml:"max_retries"`
	RateLimit  float64 `json:"RateLimit,omitempty" mapstructure:"rate_limit" yaml:"rate_limit,omitempty"` // calls per second, 0 disables
	RateBurst  int     `json:"RateBurst,omitempty" mapstructure:"rate_burst" yaml:"rate_burst,omitempty"`

	ArrayPolicy  string `json:"ArrayPolicy,omitempty" mapstructure:"array_policy" yaml:"array_policy,omitempty"`
	ObjectPolicy string `json:"ObjectPolicy,omitempty" mapstructure:"object_policy" yaml:"object_policy,omitempty"`
	NullPolicy   string `json:"NullPolicy,omitempty" mapstructure:"null_policy" yaml:"null_policy,omitempty"`
}

// DefaultConfig returns an in-memory configuration with the default
// merge policies and retry budget.
func DefaultConfig() *Config {
	return &Config{
		Name:         "docpatch",
		Store:        "memory",
		MaxRetries:   gateway.DefaultMaxRetries,
		ArrayPolicy:  merge.ArrayUnion.String(),
		ObjectPolicy: merge.ObjectUpdate.String(),
		NullPolicy:   merge.NullIgnore.String(),
	}
}

// CreateStore creates a store instance based on configuration. A positive
// RateLimit wraps it in a client-side throttle.
func (cfg *Config) CreateStore() (storage.Store, error) {
	store, err := cfg.createBackend()
	if err != nil {
		return nil, err
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		store = storage.Throttle(store, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	return store, nil
}

func (cfg *Config) createBackend() (storage.Store, error) {
	switch strings.ToLower(cfg.Store) {
	case "memory", "":
		return storage.NewMemoryStore(cfg.Name, cfg.PartitionKeyPath), nil

	case "file":
		if cfg.BasePath == "" {
			return nil, fmt.Errorf("file store requires a base path")
		}
		return storage.NewFileStore(storage.FileConfig{
			Name:             cfg.Name,
			BasePath:         cfg.BasePath,
			AESKey:           cfg.AESPwd,
			PartitionKeyPath: cfg.PartitionKeyPath,
		})

	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis store requires a redis url")
		}
		return storage.NewRedisStoreWithURL(cfg.RedisURL, cfg.Name, cfg.PartitionKeyPath)

	case "oss":
		return storage.NewOSSStore(storage.OSSConfig{
			Name:             cfg.Name,
			Endpoint:         cfg.Endpoint,
			Bucket:           cfg.Bucket,
			AccessKey:        cfg.AccessKey,
			SecretKey:        cfg.SecretKey,
			AESKey:           cfg.AESPwd,
			Internal:         cfg.Internal,
			PartitionKeyPath: cfg.PartitionKeyPath,
		})

	case "cosmos":
		return storage.NewCosmosStore(storage.CosmosConfig{
			Name:             cfg.Name,
			Endpoint:         cfg.Endpoint,
			Key:              cfg.AccessKey,
			ConnectionString: cfg.ConnectionString,
			Database:         cfg.Database,
			PartitionKeyPath: cfg.PartitionKeyPath,
		})

	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store)
	}
}

// MergeOptions returns the configured default policies. Empty names keep
// the built-in defaults.
func (cfg *Config) MergeOptions() (merge.Options, error) {
	opts := merge.DefaultOptions()
	var err error
	if cfg.ArrayPolicy != "" {
		if opts.ArrayPolicy, err = merge.ParseArrayPolicy(cfg.ArrayPolicy); err != nil {
			return opts, err
		}
	}
	if cfg.ObjectPolicy != "" {
		if opts.ObjectPolicy, err = merge.ParseObjectPolicy(cfg.ObjectPolicy); err != nil {
			return opts, err
		}
	}
	if cfg.NullPolicy != "" {
		if opts.NullPolicy, err = merge.ParseNullPolicy(cfg.NullPolicy); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// RetryPolicy returns the default policy with the configured budget.
func (cfg *Config) RetryPolicy() gateway.RetryPolicy {
	p := gateway.DefaultRetryPolicy()
	p.MaxRetries = cfg.MaxRetries
	return p
}
