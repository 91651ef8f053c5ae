package storage

import (
	"bytes"
	"context"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"
)

type memoryEntry struct {
	data     []byte
	modified time.Time
}

// MemoryBackend keeps objects in process memory. Useful for tests and dry runs.
type MemoryBackend struct {
	mu      sync.RWMutex
	clock   clock.Clock
	objects map[string]memoryEntry
}

// NewMemoryBackend returns an empty in-memory backend stamping writes with clk.
// A nil clock uses the wall clock.
func NewMemoryBackend(clk clock.Clock) *MemoryBackend {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryBackend{
		clock:   clk,
		objects: make(map[string]memoryEntry),
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(entry.data), nil
}

func (m *MemoryBackend) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryEntry{data: bytes.Clone(data), modified: m.clock.Now().UTC()}
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

// List yields a snapshot of matching objects in key order.
func (m *MemoryBackend) List(ctx context.Context, prefix string) iter.Seq2[Object, error] {
	return func(yield func(Object, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Object{}, err)
			return
		}

		m.mu.RLock()
		objects := make([]Object, 0, len(m.objects))
		for _, key := range slices.Sorted(maps.Keys(m.objects)) {
			if strings.HasPrefix(key, prefix) {
				objects = append(objects, Object{Key: key, LastModified: m.objects[key].modified})
			}
		}
		m.mu.RUnlock()

		for _, obj := range objects {
			if !yield(obj, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored objects.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
