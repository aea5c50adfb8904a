package documents

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

const documentNamespace = "document"

// BunRepository stores documents through go-repository-bun. When a cache
// service is supplied, point lookups go through go-repository-cache and every
// write drops the document namespace. Find always reads the database.
type BunRepository struct {
	db           *bun.DB
	repo         repository.Repository[*Document]
	query        repository.Repository[*Document]
	versions     repository.Repository[*Version]
	cacheService cache.CacheService
	cachePrefix  string
	logger       interfaces.Logger
}

// BunRepositoryOption configures a BunRepository.
type BunRepositoryOption func(*BunRepository)

// WithRepositoryLogger receives cache invalidation failures.
func WithRepositoryLogger(logger interfaces.Logger) BunRepositoryOption {
	return func(r *BunRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewBunRepository(db *bun.DB, opts ...BunRepositoryOption) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil, opts...)
}

func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer, opts ...BunRepositoryOption) *BunRepository {
	base := NewDocumentRepository(db)
	query := base
	var svc cache.CacheService
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
		svc = cacheService
	}
	prefix := ""
	if svc != nil {
		prefix = documentNamespace + cache.KeySeparator
	}
	r := &BunRepository{
		db:           db,
		repo:         base,
		query:        query,
		versions:     NewVersionRepository(db),
		cacheService: svc,
		cachePrefix:  prefix,
		logger:       logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *BunRepository) Create(ctx context.Context, record *Document) (*Document, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		if repository.IsDuplicatedKey(err) {
			return nil, duplicateURLError(record)
		}
		return nil, fmt.Errorf("document repository create: %w", err)
	}
	r.invalidateAfterWrite(ctx, created)
	return created, nil
}

func (r *BunRepository) Update(ctx context.Context, record *Document) (*Document, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"title",
			"slug",
			"url",
			"url_without_locale",
			"status",
			"published_at",
			"publish_at",
			"data",
			"refs",
			"version",
			"updated_at",
		),
	)
	if err != nil {
		if repository.IsDuplicatedKey(err) {
			return nil, duplicateURLError(record)
		}
		return nil, mapRepositoryError(err, record.Kind, record.ID.String())
	}
	r.invalidateAfterWrite(ctx, updated)
	return updated, nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return fmt.Errorf("document repository: database not configured")
	}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := new(Document)
		if err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx); err != nil {
			return &NotFoundError{Key: id.String()}
		}
		if _, err := tx.NewDelete().
			Model((*Version)(nil)).
			Where("?TableAlias.document_id = ?", record.DocumentID).
			Where("?TableAlias.locale = ?", record.Locale).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete document versions: %w", err)
		}
		if _, err := tx.NewDelete().
			Model((*Document)(nil)).
			Where("?TableAlias.id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := r.InvalidateCache(ctx); err != nil {
		r.logger.Warn("documents.cache.invalidate_failed", "id", id.String(), "error", err)
	}
	return nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "", id.String())
	}
	return record, nil
}

func (r *BunRepository) Find(ctx context.Context, query Query) ([]*Document, error) {
	records, _, err := r.query.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return applyQuery(q, query)
		}),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("?TableAlias.updated_at DESC").OrderExpr("?TableAlias.id ASC")
			if query.Limit > 0 {
				q = q.Limit(query.Limit)
			}
			return q
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("document repository find: %w", err)
	}
	return records, nil
}

func (r *BunRepository) CreateVersion(ctx context.Context, version *Version) (*Version, error) {
	created, err := r.versions.Create(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("document repository create version: %w", err)
	}
	return created, nil
}

func (r *BunRepository) ListVersions(ctx context.Context, documentID uuid.UUID, locale string) ([]*Version, error) {
	records, _, err := r.versions.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.document_id = ?", documentID).
				Where("?TableAlias.locale = ?", locale)
		}),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.version ASC")
		}),
	)
	return records, err
}

func (r *BunRepository) PruneVersions(ctx context.Context, documentID uuid.UUID, locale string, keep int) error {
	if keep <= 0 || r.db == nil {
		return nil
	}
	var stale []uuid.UUID
	err := r.db.NewSelect().
		Model((*Version)(nil)).
		Column("id").
		Where("?TableAlias.document_id = ?", documentID).
		Where("?TableAlias.locale = ?", locale).
		OrderExpr("?TableAlias.version DESC").
		Offset(keep).
		Limit(1000).
		Scan(ctx, &stale)
	if err != nil {
		return fmt.Errorf("select stale versions: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}
	if _, err := r.db.NewDelete().
		Model((*Version)(nil)).
		Where("?TableAlias.id IN (?)", bun.In(stale)).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete stale versions: %w", err)
	}
	return nil
}

func (r *BunRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("document repository: database not configured")
	}
	return r.db.PingContext(ctx)
}

// invalidateAfterWrite drops cached reads once a write has committed.
// Failures are logged; stale entries expire with the cache TTL.
func (r *BunRepository) invalidateAfterWrite(ctx context.Context, doc *Document) {
	if err := r.InvalidateCache(ctx); err != nil {
		logging.WithDocumentContext(r.logger, string(doc.Kind), doc.Locale, doc.URL).
			Warn("documents.cache.invalidate_failed", "error", err)
	}
}

// InvalidateCache drops cached document reads.
func (r *BunRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func applyQuery(q *bun.SelectQuery, query Query) *bun.SelectQuery {
	if len(query.Kinds) > 0 {
		kinds := make([]string, 0, len(query.Kinds))
		for _, kind := range query.Kinds {
			kinds = append(kinds, string(kind))
		}
		q = q.Where("?TableAlias.kind IN (?)", bun.In(kinds))
	}
	if query.Locale != "" {
		q = q.Where("?TableAlias.locale = ?", query.Locale)
	}
	if query.DocumentID != uuid.Nil {
		q = q.Where("?TableAlias.document_id = ?", query.DocumentID)
	}
	if query.URL != "" {
		q = q.Where("?TableAlias.url = ?", query.URL)
	}
	if query.Slug != "" {
		q = q.Where("?TableAlias.slug = ?", query.Slug)
	}
	if query.Status != "" {
		q = q.Where("?TableAlias.status = ?", string(query.Status))
	}
	if query.DueBefore != nil {
		q = q.Where("?TableAlias.publish_at IS NOT NULL").
			Where("?TableAlias.publish_at <= ?", query.DueBefore.UTC())
	}
	return q
}

// duplicateURLError reports a unique index violation on insert or update. The
// (locale, url) index is the one a racing save can trip after the service
// check passed.
func duplicateURLError(record *Document) error {
	return conflictError(&URLConflictError{URL: record.URL, Locale: record.Locale, ConflictID: "another document"})
}

func mapRepositoryError(err error, kind Kind, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Kind: kind, Key: key}
	}
	return fmt.Errorf("document repository error: %w", err)
}
