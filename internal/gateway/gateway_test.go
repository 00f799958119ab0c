package gateway

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/hkloudou/docpatch/internal/errors"
	"github.com/hkloudou/docpatch/internal/storage"
	"github.com/hkloudou/docpatch/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCollection answers each call with the next scripted error; once
// the script runs out it delegates to a memory collection.
type scriptedCollection struct {
	storage.Collection
	script []error
	calls  int
}

func newScripted(t *testing.T, script ...error) *scriptedCollection {
	t.Helper()
	coll, err := storage.NewMemoryStore("test", "").Collection("people")
	require.NoError(t, err)
	_, err = coll.Create(context.Background(), []byte(`{"id":"123","employer":"Some Company"}`))
	require.NoError(t, err)
	return &scriptedCollection{Collection: coll, script: script}
}

func (c *scriptedCollection) next() error {
	c.calls++
	if len(c.script) == 0 {
		return nil
	}
	err := c.script[0]
	c.script = c.script[1:]
	return err
}

func (c *scriptedCollection) Read(ctx context.Context, pk, id string) ([]byte, error) {
	if err := c.next(); err != nil {
		return nil, err
	}
	return c.Collection.Read(ctx, pk, id)
}

func (c *scriptedCollection) Upsert(ctx context.Context, doc []byte) ([]byte, error) {
	if err := c.next(); err != nil {
		return nil, err
	}
	return c.Collection.Upsert(ctx, doc)
}

func (c *scriptedCollection) Create(ctx context.Context, doc []byte) ([]byte, error) {
	if err := c.next(); err != nil {
		return nil, err
	}
	return c.Collection.Create(ctx, doc)
}

func (c *scriptedCollection) Delete(ctx context.Context, pk, id string) error {
	if err := c.next(); err != nil {
		return err
	}
	return c.Collection.Delete(ctx, pk, id)
}

func (c *scriptedCollection) Query(ctx context.Context, q string) ([][]byte, error) {
	if err := c.next(); err != nil {
		return nil, err
	}
	return c.Collection.Query(ctx, q)
}

// sleepRecorder replaces the wall clock in retry tests.
type sleepRecorder struct {
	slept []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return ctx.Err()
}

func limited(d time.Duration) error {
	return &storage.RateLimitedError{RetryAfter: d}
}

func testPolicy(rec *sleepRecorder, maxRetries int) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = maxRetries
	p.Sleep = rec.Sleep
	return p
}

func TestGateway_RetriesWithDoubledBackoff(t *testing.T) {
	coll := newScripted(t, limited(10*time.Millisecond), limited(30*time.Millisecond))
	rec := &sleepRecorder{}
	gw := New(coll, testPolicy(rec, 10), nil)

	ctx := trace.WithTrace(context.Background(), "test")
	doc, err := gw.Read(ctx, "123", "123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"123","employer":"Some Company"}`, string(doc))
	assert.Equal(t, 3, coll.calls)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 60 * time.Millisecond}, rec.slept)
	assert.Equal(t, []string{"Gateway.RateLimited", "Gateway.RateLimited"}, trace.FromContext(ctx).SpanNames())
}

func TestGateway_Exhausted(t *testing.T) {
	coll := newScripted(t, limited(time.Second), limited(time.Second), limited(time.Second), limited(time.Second))
	rec := &sleepRecorder{}
	gw := New(coll, testPolicy(rec, 2), nil)

	_, err := gw.Upsert(context.Background(), []byte(`{"id":"123"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeRetriesExhausted))
	_, isLimited := storage.AsRateLimited(err)
	assert.True(t, isLimited, "exhaustion wraps the last rate-limit condition")
	assert.Equal(t, 3, coll.calls, "first attempt plus two retries")
	assert.Len(t, rec.slept, 2)
}

func TestGateway_ExhaustedLegacy(t *testing.T) {
	coll := newScripted(t, limited(time.Second), limited(time.Second))
	rec := &sleepRecorder{}
	policy := testPolicy(rec, 1)
	policy.ReturnLastOnExhausted = true
	gw := New(coll, policy, nil)

	doc, err := gw.Read(context.Background(), "123", "123")
	assert.NoError(t, err)
	assert.Nil(t, doc, "last result of a throttled read is empty")
	assert.Equal(t, 2, coll.calls)
}

func TestGateway_ZeroRetries(t *testing.T) {
	coll := newScripted(t, limited(time.Second))
	rec := &sleepRecorder{}
	gw := New(coll, testPolicy(rec, 0), nil)

	_, err := gw.Query(context.Background(), "true")
	assert.True(t, errors.Is(err, errors.ErrCodeRetriesExhausted))
	assert.Equal(t, 1, coll.calls)
	assert.Empty(t, rec.slept)
}

func TestGateway_OtherErrorsAreNotRetried(t *testing.T) {
	boom := stderrors.New("boom")
	coll := newScripted(t, boom)
	rec := &sleepRecorder{}
	gw := New(coll, testPolicy(rec, 10), nil)

	_, err := gw.Create(context.Background(), []byte(`{"id":"9"}`))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, coll.calls)
	assert.Empty(t, rec.slept)
}

func TestGateway_NotFound(t *testing.T) {
	coll := newScripted(t)
	rec := &sleepRecorder{}
	gw := New(coll, testPolicy(rec, 10), nil)
	ctx := context.Background()

	_, err := gw.Read(ctx, "nobody", "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1, coll.calls)

	assert.NoError(t, gw.Delete(ctx, "nobody", "nobody"), "deleting a missing document succeeds")
	assert.NoError(t, gw.Delete(ctx, "123", "123"))
	_, err = gw.Read(ctx, "123", "123")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGateway_CancelledDuringSleep(t *testing.T) {
	coll := newScripted(t, limited(time.Hour), limited(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := New(coll, RetryPolicy{MaxRetries: 5}, nil)
	_, err := gw.Read(ctx, "123", "123")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, coll.calls)
}

func TestGateway_CustomBackoff(t *testing.T) {
	coll := newScripted(t, limited(0), limited(0), limited(0))
	rec := &sleepRecorder{}
	policy := testPolicy(rec, 5)
	policy.Backoff = func(_ time.Duration, retry int) time.Duration {
		return time.Duration(retry) * time.Millisecond
	}
	gw := New(coll, policy, nil)

	_, err := gw.Read(context.Background(), "123", "123")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, rec.slept)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), 0))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}

func TestRetryPolicy_Defaults(t *testing.T) {
	p := RetryPolicy{MaxRetries: -3}.withDefaults()
	assert.Equal(t, 0, p.MaxRetries)
	assert.NotNil(t, p.Backoff)
	assert.NotNil(t, p.Sleep)
	assert.Equal(t, 4*time.Second, p.Backoff(2*time.Second, 1))

	d := DefaultRetryPolicy()
	assert.Equal(t, DefaultMaxRetries, d.MaxRetries)
	assert.False(t, d.ReturnLastOnExhausted)
}
