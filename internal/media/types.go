package media

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrNotFound       = errors.New("media: not found")
	ErrEmptyObject    = errors.New("media: object has no content")
	ErrBackendMissing = errors.New("media: backend not configured")
)

// Media is the stored metadata of one uploaded file.
type Media struct {
	bun.BaseModel `bun:"table:media,alias:m"`

	ID          uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Field       string    `bun:"field" json:"field,omitempty"`
	Filename    string    `bun:"filename,notnull" json:"filename"`
	ContentType string    `bun:"content_type,notnull" json:"content_type"`
	Size        int64     `bun:"size,notnull" json:"size"`
	StorageKey  string    `bun:"storage_key,notnull" json:"storage_key"`
	URL         string    `bun:"url" json:"url,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// Object is an upload ready to be stored.
type Object struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Backend stores blobs by key.
type Backend interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// Repository persists media metadata.
type Repository interface {
	Create(ctx context.Context, record *Media) (*Media, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store saves uploads and their metadata together.
type Store interface {
	Put(ctx context.Context, object Object) (*Media, error)
	Get(ctx context.Context, id uuid.UUID) (*Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
