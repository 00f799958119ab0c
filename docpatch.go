// Package docpatch applies partial updates to JSON documents held in a
// document store.
//
// A patch is merged into the stored document, or into the first nested
// object matching a filter, following configurable array and object
// policies. The whole document is then written back. Store calls that are
// rate limited are retried with back-off.
package docpatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hkloudou/docpatch/internal/config"
	"github.com/hkloudou/docpatch/internal/gateway"
	"github.com/hkloudou/docpatch/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Client runs updates against one store.
type Client struct {
	store  storage.Store
	policy gateway.RetryPolicy
	logger *slog.Logger

	mu       sync.Mutex
	gateways map[string]*gateway.Gateway
}

// Option is a function that configures the client
type Option struct {
	Logger      *slog.Logger
	RetryPolicy *RetryPolicy
}

// RetryPolicy controls how rate-limited store calls are retried.
type RetryPolicy = gateway.RetryPolicy

// Config describes a store and the default policies.
type Config = config.Config

// Store is a document database holding named collections.
type Store = storage.Store

// DefaultRetryPolicy retries 10 times, sleeping twice the store's
// retry-after hint.
func DefaultRetryPolicy() RetryPolicy {
	return gateway.DefaultRetryPolicy()
}

// New creates a client on store.
func New(store Store, opts ...func(*Option)) *Client {
	option := &Option{}
	for _, opt := range opts {
		opt(option)
	}

	policy := gateway.DefaultRetryPolicy()
	if option.RetryPolicy != nil {
		policy = *option.RetryPolicy
	}
	logger := option.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		store:    store,
		policy:   policy,
		logger:   logger,
		gateways: make(map[string]*gateway.Gateway),
	}
}

// NewFromConfig creates the configured store and a client on it. The
// configured retry budget applies unless WithRetryPolicy overrides it.
func NewFromConfig(cfg *Config, opts ...func(*Option)) (*Client, error) {
	store, err := cfg.CreateStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	policy := cfg.RetryPolicy()
	return New(store, append([]func(*Option){WithRetryPolicy(policy)}, opts...)...), nil
}

// NewFromRedis loads the shared configuration kept in Redis under
// "docpatch.setting" and creates a client from it.
func NewFromRedis(ctx context.Context, metaURL string, opts ...func(*Option)) (*Client, error) {
	redisOpt, err := redis.ParseURL(metaURL)
	if err != nil {
		// Fallback to treating it as an address
		redisOpt = &redis.Options{Addr: metaURL}
	}
	rdb := redis.NewClient(redisOpt)
	defer rdb.Close()

	cfg, err := config.NewManager(rdb).Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// WithLogger sets the structured logger. Rate-limited retries are logged
// at warn level and persisted updates at debug level.
func WithLogger(logger *slog.Logger) func(*Option) {
	return func(opt *Option) {
		opt.Logger = logger
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy RetryPolicy) func(*Option) {
	return func(opt *Option) {
		opt.RetryPolicy = &policy
	}
}

// Store returns the underlying store.
func (c *Client) Store() Store {
	return c.store
}

func (c *Client) gateway(collection string) (*gateway.Gateway, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gw, ok := c.gateways[collection]; ok {
		return gw, nil
	}
	coll, err := c.store.Collection(collection)
	if err != nil {
		return nil, validationf("invalid collection: %v", err)
	}
	gw := gateway.New(coll, c.policy, c.logger.With("collection", collection))
	c.gateways[collection] = gw
	return gw, nil
}
