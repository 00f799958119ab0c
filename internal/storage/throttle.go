package storage

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle wraps store with a client-side request budget. A call that
// would have to wait for the limiter fails with *RateLimitedError carrying
// the wait, the same way a throttling server answers.
func Throttle(store Store, limiter *rate.Limiter) Store {
	return &throttledStore{Store: store, limiter: limiter}
}

type throttledStore struct {
	Store
	limiter *rate.Limiter
}

func (s *throttledStore) Collection(name string) (Collection, error) {
	coll, err := s.Store.Collection(name)
	if err != nil {
		return nil, err
	}
	return &throttledCollection{next: coll, limiter: s.limiter}, nil
}

type throttledCollection struct {
	next    Collection
	limiter *rate.Limiter
}

func (c *throttledCollection) admit() error {
	r := c.limiter.Reserve()
	if !r.OK() {
		// burst of zero: nothing is ever admitted
		return &RateLimitedError{RetryAfter: time.Second}
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return &RateLimitedError{RetryAfter: d}
	}
	return nil
}

func (c *throttledCollection) Read(ctx context.Context, partitionKey, id string) ([]byte, error) {
	if err := c.admit(); err != nil {
		return nil, err
	}
	return c.next.Read(ctx, partitionKey, id)
}

func (c *throttledCollection) Create(ctx context.Context, doc []byte) ([]byte, error) {
	if err := c.admit(); err != nil {
		return nil, err
	}
	return c.next.Create(ctx, doc)
}

func (c *throttledCollection) Upsert(ctx context.Context, doc []byte) ([]byte, error) {
	if err := c.admit(); err != nil {
		return nil, err
	}
	return c.next.Upsert(ctx, doc)
}

func (c *throttledCollection) Delete(ctx context.Context, partitionKey, id string) error {
	if err := c.admit(); err != nil {
		return err
	}
	return c.next.Delete(ctx, partitionKey, id)
}

func (c *throttledCollection) Query(ctx context.Context, query string) ([][]byte, error) {
	if err := c.admit(); err != nil {
		return nil, err
	}
	return c.next.Query(ctx, query)
}

// Key is local and does not spend budget.
func (c *throttledCollection) Key(doc []byte) (string, string, error) {
	return c.next.Key(doc)
}
