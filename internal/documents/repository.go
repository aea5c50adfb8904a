package documents

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists document rows and their version snapshots.
type Repository interface {
	Create(ctx context.Context, record *Document) (*Document, error)
	Update(ctx context.Context, record *Document) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Find(ctx context.Context, query Query) ([]*Document, error)
	CreateVersion(ctx context.Context, version *Version) (*Version, error)
	ListVersions(ctx context.Context, documentID uuid.UUID, locale string) ([]*Version, error)
	PruneVersions(ctx context.Context, documentID uuid.UUID, locale string, keep int) error
	Ping(ctx context.Context) error
}

// NewDocumentRepository builds the go-repository-bun handle for documents.
func NewDocumentRepository(db *bun.DB) repository.Repository[*Document] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Document]{
		NewRecord: func() *Document { return &Document{} },
		GetID: func(d *Document) uuid.UUID {
			return d.ID
		},
		SetID: func(d *Document, id uuid.UUID) {
			d.ID = id
		},
		GetIdentifier: func() string {
			return "url"
		},
		GetIdentifierValue: func(d *Document) string {
			return d.URL
		},
	})
}

func NewVersionRepository(db *bun.DB) repository.Repository[*Version] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Version]{
		NewRecord: func() *Version { return &Version{} },
		GetID: func(v *Version) uuid.UUID {
			return v.ID
		},
		SetID: func(v *Version, id uuid.UUID) {
			v.ID = id
		},
		GetIdentifier: func() string {
			return ""
		},
		GetIdentifierValue: func(*Version) string {
			return ""
		},
	})
}
