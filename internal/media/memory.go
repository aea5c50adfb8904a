package media

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend keeps blobs in process.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryBackend(baseURL string) *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte), baseURL: baseURL}
}

func (b *MemoryBackend) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return publicURL(b.baseURL, key), nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

// Len reports how many blobs are stored.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// MemoryRepository keeps media metadata in process.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Media
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]*Media)}
}

func (r *MemoryRepository) Create(_ context.Context, record *Media) (*Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *record
	r.records[cloned.ID] = &cloned
	out := cloned
	return &out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *record
	return &out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
