package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/urls"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

type StoreOption func(*store)

func WithClock(clock func() time.Time) StoreOption {
	return func(s *store) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithLogger(logger interfaces.Logger) StoreOption {
	return func(s *store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyPrefix namespaces blob keys, e.g. "form-uploads".
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *store) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

type store struct {
	backend Backend
	repo    Repository
	now     func() time.Time
	logger  interfaces.Logger
	prefix  string
}

func NewStore(backend Backend, repo Repository, opts ...StoreOption) Store {
	s := &store{
		backend: backend,
		repo:    repo,
		now:     time.Now,
		logger:  logging.NoOp(),
		prefix:  "media",
	}
	if s.repo == nil {
		s.repo = NewMemoryRepository()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *store) Put(ctx context.Context, object Object) (*Media, error) {
	if s.backend == nil {
		return nil, ErrBackendMissing
	}
	if len(object.Data) == 0 {
		return nil, ErrEmptyObject
	}

	id := uuid.New()
	key := s.keyFor(id, object.Filename)
	url, err := s.backend.Put(ctx, key, object.ContentType, object.Data)
	if err != nil {
		return nil, fmt.Errorf("media put %s: %w", key, err)
	}

	record := &Media{
		ID:          id,
		Field:       object.Field,
		Filename:    object.Filename,
		ContentType: object.ContentType,
		Size:        int64(len(object.Data)),
		StorageKey:  key,
		URL:         url,
		CreatedAt:   s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if delErr := s.backend.Delete(ctx, key); delErr != nil {
			s.logger.Warn("media.put.cleanup_failed", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("media metadata: %w", err)
	}
	return created, nil
}

func (s *store) Get(ctx context.Context, id uuid.UUID) (*Media, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *store) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, record.StorageKey); err != nil {
		return fmt.Errorf("media delete %s: %w", record.StorageKey, err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *store) keyFor(id uuid.UUID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(name))
	stem := urls.Slugify(strings.TrimSuffix(name, path.Ext(name)))
	if stem == "" {
		stem = "file"
	}
	return path.Join(s.prefix, id.String(), stem+ext)
}
