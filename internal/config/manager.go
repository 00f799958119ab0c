package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SettingKey is the Redis key holding the shared configuration.
const SettingKey = "docpatch.setting"

// Manager manages docpatch configuration stored in Redis
type Manager struct {
	rdb    *redis.Client
	flight singleflight.Group
}

// NewManager creates a new config manager
func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

// Load loads configuration from Redis. Concurrent callers share one read.
func (m *Manager) Load(ctx context.Context) (*Config, error) {
	v, err, _ := m.flight.Do(SettingKey, func() (interface{}, error) {
		return m.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	// each caller gets its own copy
	cfg := *v.(*Config)
	return &cfg, nil
}

func (m *Manager) load(ctx context.Context) (*Config, error) {
	data, err := m.rdb.Get(ctx, SettingKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s not found in Redis", SettingKey)
		}
		return nil, fmt.Errorf("failed to read config from Redis: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save saves configuration to Redis
func (m *Manager) Save(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := m.rdb.Set(ctx, SettingKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save config to Redis: %w", err)
	}
	return nil
}
