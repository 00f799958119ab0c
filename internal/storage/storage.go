package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hkloudou/docpatch/internal/document"
	"github.com/tidwall/sjson"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by Create when the id is already taken.
	ErrConflict = errors.New("document already exists")
)

// RateLimitedError reports that the store asked the caller to slow down.
type RateLimitedError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return e.Err
}

// AsRateLimited extracts a *RateLimitedError from err's chain.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// Store is a document database holding named collections.
type Store interface {
	// Name identifies the store in logs
	Name() string

	// Collection returns a handle on the named collection
	Collection(name string) (Collection, error)
}

// Collection holds JSON documents addressed by partition key and id.
type Collection interface {
	// Read returns the document or ErrNotFound
	Read(ctx context.Context, partitionKey, id string) ([]byte, error)

	// Create stores a new document; ErrConflict if the id is taken
	Create(ctx context.Context, doc []byte) ([]byte, error)

	// Upsert creates or replaces the whole document
	Upsert(ctx context.Context, doc []byte) ([]byte, error)

	// Delete removes the document or returns ErrNotFound
	Delete(ctx context.Context, partitionKey, id string) error

	// Query returns every document matching the query text
	Query(ctx context.Context, query string) ([][]byte, error)

	// Key returns the partition key and id the collection files doc under
	Key(doc []byte) (partitionKey, id string, err error)
}

// ValidateCollectionName applies the naming rules shared by all backends.
func ValidateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("collection name %q is longer than 255 characters", name)
	}
	if strings.HasSuffix(name, " ") {
		return fmt.Errorf("collection name %q cannot end with a space", name)
	}
	if strings.ContainsAny(name, `/\?#`) {
		return fmt.Errorf("collection name %q cannot contain '/', '\\', '?' or '#'", name)
	}
	return nil
}

// EnsureID stamps a random id into doc when it has none.
func EnsureID(doc []byte) ([]byte, string, error) {
	if err := document.ValidateObject(doc); err != nil {
		return nil, "", err
	}
	if id, err := document.ID(doc); err == nil {
		return doc, id, nil
	}
	id := uuid.NewString()
	out, err := sjson.SetBytes(doc, document.IDField, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to set id: %w", err)
	}
	return out, id, nil
}

// documentKey returns the partition key and id of doc. pkPath is a gjson
// path; empty means the id.
func documentKey(doc []byte, pkPath string) (pk, id string, err error) {
	if err := document.ValidateObject(doc); err != nil {
		return "", "", err
	}
	id, err = document.ID(doc)
	if err != nil {
		return "", "", err
	}
	pk, err = document.PartitionKey(doc, pkPath)
	if err != nil {
		return "", "", err
	}
	return pk, id, nil
}

// normalizePartitionKeyPath accepts both "/tenant/code" and "tenant.code".
func normalizePartitionKeyPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return path
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	p := document.Path{}
	for _, seg := range segments {
		p = p.Key(seg)
	}
	return p.String()
}

