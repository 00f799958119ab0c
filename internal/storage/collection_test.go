package storage

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// runCollectionSuite exercises the Collection contract against one store.
func runCollectionSuite(t *testing.T, store Store) {
	ctx := context.Background()

	coll, err := store.Collection("people")
	require.NoError(t, err)

	t.Run("read missing", func(t *testing.T) {
		_, err := coll.Read(ctx, "nobody", "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create then read", func(t *testing.T) {
		doc := []byte(`{"id":"123","employer":"Some Company","managers":["A","B"]}`)
		_, err := coll.Create(ctx, doc)
		require.NoError(t, err)

		got, err := coll.Read(ctx, "123", "123")
		require.NoError(t, err)
		assert.JSONEq(t, string(doc), string(got))
	})

	t.Run("create conflict", func(t *testing.T) {
		_, err := coll.Create(ctx, []byte(`{"id":"123"}`))
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("create without id", func(t *testing.T) {
		_, err := coll.Create(ctx, []byte(`{"employer":"x"}`))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrConflict)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		_, err := coll.Upsert(ctx, []byte(`{"id":"123","employer":"Other"}`))
		require.NoError(t, err)

		got, err := coll.Read(ctx, "123", "123")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"123","employer":"Other"}`, string(got))
	})

	t.Run("upsert creates", func(t *testing.T) {
		_, err := coll.Upsert(ctx, []byte(`{"id":"456","employer":"Other"}`))
		require.NoError(t, err)
		_, err = coll.Read(ctx, "456", "456")
		require.NoError(t, err)
	})

	t.Run("query", func(t *testing.T) {
		_, err := coll.Upsert(ctx, []byte(`{"id":"789","employer":"Third"}`))
		require.NoError(t, err)

		docs, err := coll.Query(ctx, `c.employer == "Other"`)
		require.NoError(t, err)
		var ids []string
		for _, d := range docs {
			ids = append(ids, gjson.GetBytes(d, "id").String())
		}
		assert.ElementsMatch(t, []string{"123", "456"}, ids)

		docs, err = coll.Query(ctx, `SELECT * FROM c WHERE c.id = '789'`)
		require.NoError(t, err)
		require.Len(t, docs, 1)

		_, err = coll.Query(ctx, `c.id ==`)
		assert.Error(t, err)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		other, err := store.Collection("orders")
		require.NoError(t, err)
		_, err = other.Read(ctx, "123", "123")
		assert.ErrorIs(t, err, ErrNotFound)
		docs, err := other.Query(ctx, "true")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, coll.Delete(ctx, "456", "456"))
		_, err := coll.Read(ctx, "456", "456")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, coll.Delete(ctx, "456", "456"), ErrNotFound)
	})

	t.Run("invalid collection", func(t *testing.T) {
		_, err := store.Collection("a/b")
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("test", "")
	assert.Equal(t, "test", store.Name())
	runCollectionSuite(t, store)
}

func TestMemoryStore_QueryKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	coll, err := NewMemoryStore("test", "").Collection("c")
	require.NoError(t, err)
	for _, id := range []string{"z", "a", "m"} {
		_, err := coll.Create(ctx, []byte(`{"id":"`+id+`"}`))
		require.NoError(t, err)
	}
	docs, err := coll.Query(ctx, "true")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "z", gjson.GetBytes(docs[0], "id").String())
	assert.Equal(t, "a", gjson.GetBytes(docs[1], "id").String())
	assert.Equal(t, "m", gjson.GetBytes(docs[2], "id").String())
}

func TestMemoryStore_PartitionKeyPath(t *testing.T) {
	ctx := context.Background()
	coll, err := NewMemoryStore("test", "/tenant").Collection("c")
	require.NoError(t, err)

	_, err = coll.Create(ctx, []byte(`{"id":"1","tenant":"acme"}`))
	require.NoError(t, err)

	_, err = coll.Read(ctx, "acme", "1")
	require.NoError(t, err)
	_, err = coll.Read(ctx, "1", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = coll.Create(ctx, []byte(`{"id":"2"}`))
	assert.Error(t, err, "partition key missing")

	pk, id, err := coll.Key([]byte(`{"id":"7","tenant":"initech"}`))
	require.NoError(t, err)
	assert.Equal(t, "initech", pk)
	assert.Equal(t, "7", id)
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(FileConfig{Name: "files", BasePath: t.TempDir()})
	require.NoError(t, err)
	runCollectionSuite(t, store)
}

func TestFileStore_Encrypted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(FileConfig{Name: "files", BasePath: dir, AESKey: "secret"})
	require.NoError(t, err)
	runCollectionSuite(t, store)

	// a store with the wrong key cannot read the data
	wrong, err := NewFileStore(FileConfig{Name: "files", BasePath: dir, AESKey: "other"})
	require.NoError(t, err)
	coll, err := wrong.Collection("people")
	require.NoError(t, err)
	_, err = coll.Read(context.Background(), "123", "123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileBlob_Layout(t *testing.T) {
	blob := &fileBlob{}
	key := blob.DocumentKey("Users", "123", "123")
	assert.Regexp(t, `^[0-9a-f]{2}/5573657273/[0-9a-f]{2}/313233_313233\.dat$`, key)
	assert.NotEqual(t, blob.CollectionPrefix("Users"), blob.CollectionPrefix("users"))
}

func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("DOCPATCH_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisStore(t *testing.T) {
	rdb := testRedisClient(t)
	ctx := context.Background()
	name := "test-" + t.Name()
	hashes := []string{"docpatch:" + name + ":doc:people", "docpatch:" + name + ":doc:orders"}
	rdb.Del(ctx, hashes...)
	t.Cleanup(func() { rdb.Del(ctx, hashes...) })
	runCollectionSuite(t, NewRedisStore(rdb, name, ""))
}

func TestRedisBlob_Keys(t *testing.T) {
	blob := &redisBlob{prefix: "docpatch:s:doc:"}
	key := blob.DocumentKey("people", "a|b", "1")
	hash, field, err := blob.split(key)
	require.NoError(t, err)
	assert.Equal(t, "docpatch:s:doc:people", hash)
	assert.Equal(t, "617c62|31", field)

	_, _, err = blob.split("no-separator")
	assert.Error(t, err)
}
