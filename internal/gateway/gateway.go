// Package gateway wraps a storage.Collection with rate-limit retries.
//
// A call that fails with *storage.RateLimitedError sleeps for the policy's
// backoff and is retried; any other error is returned at once. Not-found
// is a normal outcome: Read returns storage.ErrNotFound unwrapped and
// Delete reports success.
package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/hkloudou/docpatch/internal/errors"
	"github.com/hkloudou/docpatch/internal/storage"
	"github.com/hkloudou/docpatch/trace"
)

// Gateway is a retrying view of one collection.
type Gateway struct {
	coll   storage.Collection
	policy RetryPolicy
	logger *slog.Logger
}

// New wraps coll. A nil logger means slog.Default().
func New(coll storage.Collection, policy RetryPolicy, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		coll:   coll,
		policy: policy.withDefaults(),
		logger: logger,
	}
}

// Read returns the document, or storage.ErrNotFound.
func (g *Gateway) Read(ctx context.Context, partitionKey, id string) ([]byte, error) {
	return do(ctx, g, "read", func(ctx context.Context) ([]byte, error) {
		return g.coll.Read(ctx, partitionKey, id)
	})
}

func (g *Gateway) Create(ctx context.Context, doc []byte) ([]byte, error) {
	return do(ctx, g, "create", func(ctx context.Context) ([]byte, error) {
		return g.coll.Create(ctx, doc)
	})
}

func (g *Gateway) Upsert(ctx context.Context, doc []byte) ([]byte, error) {
	return do(ctx, g, "upsert", func(ctx context.Context) ([]byte, error) {
		return g.coll.Upsert(ctx, doc)
	})
}

// Delete removes the document; a missing document counts as deleted.
func (g *Gateway) Delete(ctx context.Context, partitionKey, id string) error {
	_, err := do(ctx, g, "delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.coll.Delete(ctx, partitionKey, id)
	})
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// Query returns the documents matching query, materialized in full.
func (g *Gateway) Query(ctx context.Context, query string) ([][]byte, error) {
	return do(ctx, g, "query", func(ctx context.Context) ([][]byte, error) {
		return g.coll.Query(ctx, query)
	})
}

// Key returns the partition key and id of doc within the collection.
func (g *Gateway) Key(doc []byte) (string, string, error) {
	return g.coll.Key(doc)
}

// do runs call until it succeeds, fails with a non rate-limit error, or
// the retry budget is spent.
func do[T any](ctx context.Context, g *Gateway, op string, call func(context.Context) (T, error)) (T, error) {
	var (
		last        T
		lastLimited *storage.RateLimitedError
	)
	for attempt := 0; ; attempt++ {
		res, err := call(ctx)
		if err == nil {
			return res, nil
		}
		limited, ok := storage.AsRateLimited(err)
		if !ok {
			return res, err
		}
		last, lastLimited = res, limited
		if attempt >= g.policy.MaxRetries {
			break
		}

		wait := g.policy.Backoff(limited.RetryAfter, attempt+1)
		g.logger.WarnContext(ctx, "store call rate limited",
			"op", op,
			"attempt", attempt+1,
			"retry_after", limited.RetryAfter,
			"sleep", wait,
		)
		trace.FromContext(ctx).RecordSpan("Gateway.RateLimited", map[string]interface{}{
			"op":      op,
			"attempt": attempt + 1,
			"sleep":   wait.String(),
		})
		if err := g.policy.Sleep(ctx, wait); err != nil {
			return last, fmt.Errorf("failed to wait before retrying %s: %w", op, err)
		}
	}

	if g.policy.ReturnLastOnExhausted {
		g.logger.WarnContext(ctx, "retry budget exhausted, returning last result",
			"op", op,
			"attempts", g.policy.MaxRetries+1,
		)
		return last, nil
	}
	return last, errors.Wrap(errors.ErrCodeRetriesExhausted,
		fmt.Sprintf("%s still rate limited after %d attempts", op, g.policy.MaxRetries+1),
		lastLimited).
		WithDetail("op", op).
		WithDetail("attempts", g.policy.MaxRetries+1)
}
