package storage

import (
	"context"
	"errors"
	"fmt"
)

// Blob is the key/value surface behind the memory, file, redis and OSS
// backends. Documents live under DocumentKey; every key of a collection
// starts with CollectionPrefix.
type Blob interface {
	// Get retrieves data by key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data with the given key
	Put(ctx context.Context, key string, data []byte) error

	// PutIfAbsent stores data unless the key exists, then ErrConflict
	PutIfAbsent(ctx context.Context, key string, data []byte) error

	// Delete removes data by key, or ErrNotFound
	Delete(ctx context.Context, key string) error

	// List lists all keys with the given prefix in a stable order
	List(ctx context.Context, prefix string) ([]string, error)

	DocumentKey(collection, partitionKey, id string) string
	CollectionPrefix(collection string) string
}

// blobStore adapts a Blob to the Store interface.
type blobStore struct {
	name   string
	blob   Blob
	pkPath string
}

func newBlobStore(name string, blob Blob, partitionKeyPath string) *blobStore {
	return &blobStore{
		name:   name,
		blob:   blob,
		pkPath: normalizePartitionKeyPath(partitionKeyPath),
	}
}

func (s *blobStore) Name() string {
	return s.name
}

func (s *blobStore) Collection(name string) (Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}
	return &blobCollection{name: name, blob: s.blob, pkPath: s.pkPath}, nil
}

type blobCollection struct {
	name   string
	blob   Blob
	pkPath string
}

func (c *blobCollection) Read(ctx context.Context, partitionKey, id string) ([]byte, error) {
	return c.blob.Get(ctx, c.blob.DocumentKey(c.name, partitionKey, id))
}

func (c *blobCollection) Create(ctx context.Context, doc []byte) ([]byte, error) {
	pk, id, err := documentKey(doc, c.pkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if err := c.blob.PutIfAbsent(ctx, c.blob.DocumentKey(c.name, pk, id), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *blobCollection) Upsert(ctx context.Context, doc []byte) ([]byte, error) {
	pk, id, err := documentKey(doc, c.pkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}
	if err := c.blob.Put(ctx, c.blob.DocumentKey(c.name, pk, id), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *blobCollection) Key(doc []byte) (string, string, error) {
	return documentKey(doc, c.pkPath)
}

func (c *blobCollection) Delete(ctx context.Context, partitionKey, id string) error {
	return c.blob.Delete(ctx, c.blob.DocumentKey(c.name, partitionKey, id))
}

func (c *blobCollection) Query(ctx context.Context, query string) ([][]byte, error) {
	filter, err := CompileQuery(query)
	if err != nil {
		return nil, err
	}
	keys, err := c.blob.List(ctx, c.blob.CollectionPrefix(c.name))
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := c.blob.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			// deleted since List
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Match(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}
