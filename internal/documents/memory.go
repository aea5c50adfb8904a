package documents

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps documents in process. Records are cloned on the way
// in and out so callers cannot mutate stored state.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*Document
	versions map[uuid.UUID][]*Version
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[uuid.UUID]*Document),
		versions: make(map[uuid.UUID][]*Version),
	}
}

func (m *MemoryRepository) Create(_ context.Context, record *Document) (*Document, error) {
	if record == nil {
		return nil, ErrDocumentRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkURL(record); err != nil {
		return nil, err
	}
	cloned := cloneDocument(record)
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	m.byID[cloned.ID] = cloned
	return cloneDocument(cloned), nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Document) (*Document, error) {
	if record == nil {
		return nil, ErrDocumentRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[record.ID]; !ok {
		return nil, &NotFoundError{Kind: record.Kind, Key: record.ID.String(), Locale: record.Locale}
	}
	if err := m.checkURL(record); err != nil {
		return nil, err
	}
	cloned := cloneDocument(record)
	m.byID[cloned.ID] = cloned
	return cloneDocument(cloned), nil
}

// checkURL enforces one document per (locale, url). Callers hold m.mu.
func (m *MemoryRepository) checkURL(record *Document) error {
	if record.URL == "" {
		return nil
	}
	for _, other := range m.byID {
		if other.ID == record.ID || other.DocumentID == record.DocumentID {
			continue
		}
		if other.Locale == record.Locale && other.URL == record.URL {
			return conflictError(&URLConflictError{URL: record.URL, Locale: record.Locale, ConflictID: other.DocumentID.String()})
		}
	}
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return &NotFoundError{Key: id.String()}
	}
	delete(m.byID, id)
	key := versionKey(record.DocumentID, record.Locale)
	delete(m.versions, key)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Key: id.String()}
	}
	return cloneDocument(record), nil
}

func (m *MemoryRepository) Find(_ context.Context, query Query) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Document, 0)
	for _, record := range m.byID {
		if query.Match(record) {
			out = append(out, cloneDocument(record))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) CreateVersion(_ context.Context, version *Version) (*Version, error) {
	if version == nil {
		return nil, ErrDocumentRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := *version
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	cloned.Snapshot = maps.Clone(version.Snapshot)
	key := versionKey(cloned.DocumentID, cloned.Locale)
	m.versions[key] = append(m.versions[key], &cloned)
	result := cloned
	return &result, nil
}

// ListVersions returns snapshots oldest first.
func (m *MemoryRepository) ListVersions(_ context.Context, documentID uuid.UUID, locale string) ([]*Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.versions[versionKey(documentID, locale)]
	out := make([]*Version, 0, len(stored))
	for _, v := range stored {
		cloned := *v
		cloned.Snapshot = maps.Clone(v.Snapshot)
		out = append(out, &cloned)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *MemoryRepository) PruneVersions(_ context.Context, documentID uuid.UUID, locale string, keep int) error {
	if keep <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := versionKey(documentID, locale)
	stored := m.versions[key]
	if len(stored) <= keep {
		return nil
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Version < stored[j].Version })
	m.versions[key] = append([]*Version(nil), stored[len(stored)-keep:]...)
	return nil
}

func (m *MemoryRepository) Ping(context.Context) error {
	return nil
}

func versionKey(documentID uuid.UUID, locale string) uuid.UUID {
	return uuid.NewSHA1(documentID, []byte(locale))
}

func cloneDocument(src *Document) *Document {
	if src == nil {
		return nil
	}
	cloned := *src
	cloned.Data = maps.Clone(src.Data)
	if src.Refs != nil {
		cloned.Refs = append([]Reference(nil), src.Refs...)
	}
	if src.PublishedAt != nil {
		t := *src.PublishedAt
		cloned.PublishedAt = &t
	}
	if src.PublishAt != nil {
		t := *src.PublishAt
		cloned.PublishAt = &t
	}
	cloned.Resolved = nil
	return &cloned
}
