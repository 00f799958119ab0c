package config

import (
	"context"
	"testing"

	"github.com/hkloudou/docpatch/internal/errors"
	"github.com/hkloudou/docpatch/internal/gateway"
	"github.com/hkloudou/docpatch/internal/merge"
	"github.com/hkloudou/docpatch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "docpatch", cfg.Name)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, gateway.DefaultMaxRetries, cfg.MaxRetries)

	opts, err := cfg.MergeOptions()
	require.NoError(t, err)
	assert.Equal(t, merge.DefaultOptions(), opts)
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "memory", cfg: Config{Name: "m", Store: "memory"}},
		{name: "empty means memory", cfg: Config{Name: "m"}},
		{name: "file", cfg: Config{Name: "f", Store: "file", BasePath: t.TempDir()}},
		{name: "file with aes", cfg: Config{Name: "f", Store: "FILE", BasePath: t.TempDir(), AESPwd: "secret"}},
		{name: "throttled memory", cfg: Config{Name: "t", Store: "memory", RateLimit: 1000, RateBurst: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := tt.cfg.CreateStore()
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Name, store.Name())

			coll, err := store.Collection("people")
			require.NoError(t, err)
			_, err = coll.Create(ctx, []byte(`{"id":"1","name":"Ada"}`))
			require.NoError(t, err)
			doc, err := coll.Read(ctx, "1", "1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"1","name":"Ada"}`, string(doc))
		})
	}
}

func TestCreateStore_Throttled(t *testing.T) {
	cfg := Config{Name: "t", RateLimit: 0.001}
	store, err := cfg.CreateStore()
	require.NoError(t, err)
	coll, err := store.Collection("people")
	require.NoError(t, err)

	_, err = coll.Upsert(context.Background(), []byte(`{"id":"1"}`))
	require.NoError(t, err, "burst defaults to one")
	_, err = coll.Upsert(context.Background(), []byte(`{"id":"1"}`))
	_, limited := storage.AsRateLimited(err)
	assert.True(t, limited)
}

func TestCreateStore_Errors(t *testing.T) {
	for _, cfg := range []Config{
		{Store: "s3"},
		{Store: "file"},
		{Store: "redis"},
		{Store: "redis", RedisURL: "not a url"},
		{Store: "cosmos", Endpoint: "https://acct.documents.azure.com:443/"},
	} {
		_, err := cfg.CreateStore()
		assert.Error(t, err, cfg.Store)
	}
}

func TestMergeOptions(t *testing.T) {
	cfg := Config{ArrayPolicy: "concat", ObjectPolicy: "Replace", NullPolicy: "MERGE"}
	opts, err := cfg.MergeOptions()
	require.NoError(t, err)
	assert.Equal(t, merge.ArrayConcat, opts.ArrayPolicy)
	assert.Equal(t, merge.ObjectReplace, opts.ObjectPolicy)
	assert.Equal(t, merge.NullMerge, opts.NullPolicy)

	for _, bad := range []Config{{ArrayPolicy: "SHUFFLE"}, {ObjectPolicy: "x"}, {NullPolicy: "drop"}} {
		_, err := bad.MergeOptions()
		assert.True(t, errors.Is(err, errors.ErrCodeValidation), "%+v", bad)
	}
}

func TestRetryPolicy(t *testing.T) {
	cfg := Config{MaxRetries: 4}
	p := cfg.RetryPolicy()
	assert.Equal(t, 4, p.MaxRetries)
	assert.NotNil(t, p.Backoff)
	assert.False(t, p.ReturnLastOnExhausted)
}
