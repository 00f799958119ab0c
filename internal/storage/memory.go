package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// memoryBlob is an in-memory Blob (for testing). Keys are listed in
// insertion order.
type memoryBlob struct {
	mu   sync.RWMutex
	keys []string
	data map[string][]byte
}

// NewMemoryStore creates a new in-memory document store.
func NewMemoryStore(name, partitionKeyPath string) Store {
	return newBlobStore(name, newMemoryBlob(), partitionKeyPath)
}

func newMemoryBlob() *memoryBlob {
	return &memoryBlob{data: make(map[string][]byte)}
}

func (m *memoryBlob) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to avoid external modifications
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

func (m *memoryBlob) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(key, data)
	return nil
}

func (m *memoryBlob) PutIfAbsent(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; ok {
		return ErrConflict
	}
	m.put(key, data)
	return nil
}

func (m *memoryBlob) put(key string, data []byte) {
	if _, ok := m.data[key]; !ok {
		m.keys = append(m.keys, key)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	m.data[key] = copied
}

func (m *memoryBlob) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryBlob) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for _, k := range m.keys {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// DocumentKey format: {collection}/{hex(pk)}_{hex(id)}
func (m *memoryBlob) DocumentKey(collection, partitionKey, id string) string {
	return fmt.Sprintf("%s%s_%s", m.CollectionPrefix(collection), hex.EncodeToString([]byte(partitionKey)), hex.EncodeToString([]byte(id)))
}

func (m *memoryBlob) CollectionPrefix(collection string) string {
	return collection + "/"
}
