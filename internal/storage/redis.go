package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisBusyRetryAfter is the back-off hint for BUSY and LOADING replies.
const redisBusyRetryAfter = 100 * time.Millisecond

// redisBlob keeps each collection in one hash:
//
//	key:   docpatch:{store}:doc:{collection}
//	field: {hex(pk)}|{hex(id)}
//
// Blob keys are "{hash key}#{field}".
type redisBlob struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a document store on an existing client.
func NewRedisStore(client *redis.Client, name, partitionKeyPath string) Store {
	blob := &redisBlob{
		client: client,
		prefix: fmt.Sprintf("docpatch:%s:doc:", name),
	}
	return newBlobStore(name, blob, partitionKeyPath)
}

// NewRedisStoreWithURL creates a document store from a redis:// URL.
func NewRedisStoreWithURL(url, name, partitionKeyPath string) (Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opt), name, partitionKeyPath), nil
}

func (s *redisBlob) split(key string) (hash, field string, err error) {
	i := strings.LastIndexByte(key, '#')
	if i < 0 {
		return "", "", fmt.Errorf("malformed redis document key %q", key)
	}
	return key[:i], key[i+1:], nil
}

func (s *redisBlob) Get(ctx context.Context, key string) ([]byte, error) {
	hash, field, err := s.split(key)
	if err != nil {
		return nil, err
	}
	data, err := s.client.HGet(ctx, hash, field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, translateRedisError("read document", err)
	}
	return data, nil
}

func (s *redisBlob) Put(ctx context.Context, key string, data []byte) error {
	hash, field, err := s.split(key)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, hash, field, data).Err(); err != nil {
		return translateRedisError("write document", err)
	}
	return nil
}

func (s *redisBlob) PutIfAbsent(ctx context.Context, key string, data []byte) error {
	hash, field, err := s.split(key)
	if err != nil {
		return err
	}
	ok, err := s.client.HSetNX(ctx, hash, field, data).Result()
	if err != nil {
		return translateRedisError("create document", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *redisBlob) Delete(ctx context.Context, key string) error {
	hash, field, err := s.split(key)
	if err != nil {
		return err
	}
	n, err := s.client.HDel(ctx, hash, field).Result()
	if err != nil {
		return translateRedisError("delete document", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the fields of one collection hash, sorted.
func (s *redisBlob) List(ctx context.Context, prefix string) ([]string, error) {
	hash := strings.TrimSuffix(prefix, "#")
	fields, err := s.client.HKeys(ctx, hash).Result()
	if err != nil {
		return nil, translateRedisError("list documents", err)
	}
	sort.Strings(fields)
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = prefix + f
	}
	return keys, nil
}

func (s *redisBlob) DocumentKey(collection, partitionKey, id string) string {
	return s.CollectionPrefix(collection) + hex.EncodeToString([]byte(partitionKey)) + "|" + hex.EncodeToString([]byte(id))
}

func (s *redisBlob) CollectionPrefix(collection string) string {
	return s.prefix + collection + "#"
}

func translateRedisError(op string, err error) error {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		msg := rerr.Error()
		if strings.HasPrefix(msg, "BUSY") || strings.HasPrefix(msg, "LOADING") {
			return &RateLimitedError{RetryAfter: redisBusyRetryAfter, Err: err}
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
