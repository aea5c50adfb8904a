package documents

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Kind names a document collection or global singleton.
type Kind string

const (
	KindPage               Kind = "page"
	KindBlogPost           Kind = "blog-post"
	KindHome               Kind = "home"
	KindBlog               Kind = "blog"
	KindPrivacyPolicy      Kind = "privacy-policy"
	KindCookiePolicy       Kind = "cookie-policy"
	KindTermsAndConditions Kind = "terms-and-conditions"
	KindNavigation         Kind = "navigation"
	KindFooter             Kind = "footer"
)

var allKinds = []Kind{
	KindPage,
	KindBlogPost,
	KindHome,
	KindBlog,
	KindPrivacyPolicy,
	KindCookiePolicy,
	KindTermsAndConditions,
	KindNavigation,
	KindFooter,
}

// Kinds lists every known kind.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind maps a string to a known Kind.
func ParseKind(value string) (Kind, error) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allKinds {
		if kind == candidate {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

// IsGlobal reports whether the kind has exactly one document per locale.
func (k Kind) IsGlobal() bool {
	return k != KindPage && k != KindBlogPost
}

// IsRoutable reports whether documents of this kind are served at a URL.
func (k Kind) IsRoutable() bool {
	return k != KindNavigation && k != KindFooter
}

// IsLegal reports whether the kind is one of the legal pages.
func (k Kind) IsLegal() bool {
	return k == KindPrivacyPolicy || k == KindCookiePolicy || k == KindTermsAndConditions
}

func (k Kind) String() string {
	return string(k)
}

// Status is the publication state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Reference points from a relationship field to another document in the same
// locale.
type Reference struct {
	Field      string    `json:"field"`
	Kind       Kind      `json:"kind"`
	DocumentID uuid.UUID `json:"document_id"`
}

// Document is one locale of a content document. All locales of the same
// document share DocumentID; ID identifies the row.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID               uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	DocumentID       uuid.UUID      `bun:"document_id,notnull,type:uuid" json:"document_id"`
	Kind             Kind           `bun:"kind,notnull" json:"kind"`
	Locale           string         `bun:"locale,notnull" json:"locale"`
	Title            string         `bun:"title" json:"title"`
	Slug             string         `bun:"slug" json:"slug,omitempty"`
	URL              string         `bun:"url,nullzero" json:"url,omitempty"`
	URLWithoutLocale string         `bun:"url_without_locale" json:"url_without_locale,omitempty"`
	Status           Status         `bun:"status,notnull" json:"status"`
	PublishedAt      *time.Time     `bun:"published_at,nullzero" json:"published_at,omitempty"`
	PublishAt        *time.Time     `bun:"publish_at,nullzero" json:"publish_at,omitempty"`
	Data             map[string]any `bun:"data,type:jsonb" json:"data,omitempty"`
	Refs             []Reference    `bun:"refs,type:jsonb" json:"refs,omitempty"`
	Version          int            `bun:"version,notnull,default:0" json:"version"`
	CreatedAt        time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	// Resolved holds dereferenced Refs keyed by field when a lookup asked for
	// depth > 0.
	Resolved map[string][]*Document `bun:"-" json:"resolved,omitempty"`
}

// IsPublished reports whether the document is live.
func (d *Document) IsPublished() bool {
	return d != nil && d.Status == StatusPublished
}

// Version is a snapshot taken on every save.
type Version struct {
	bun.BaseModel `bun:"table:document_versions,alias:dv"`

	ID         uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	DocumentID uuid.UUID      `bun:"document_id,notnull,type:uuid" json:"document_id"`
	Locale     string         `bun:"locale,notnull" json:"locale"`
	Version    int            `bun:"version,notnull" json:"version"`
	Snapshot   map[string]any `bun:"snapshot,type:jsonb,notnull" json:"snapshot"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// Query filters documents. Zero-valued fields are ignored. Results are ordered
// by most recent update first.
type Query struct {
	Kinds      []Kind
	Locale     string
	DocumentID uuid.UUID
	URL        string
	Slug       string
	Status     Status
	DueBefore  *time.Time
	Limit      int
}

// Match reports whether doc satisfies every filter of q.
func (q Query) Match(doc *Document) bool {
	if doc == nil {
		return false
	}
	if len(q.Kinds) > 0 && !containsKind(q.Kinds, doc.Kind) {
		return false
	}
	if q.Locale != "" && doc.Locale != q.Locale {
		return false
	}
	if q.DocumentID != uuid.Nil && doc.DocumentID != q.DocumentID {
		return false
	}
	if q.URL != "" && doc.URL != q.URL {
		return false
	}
	if q.Slug != "" && doc.Slug != q.Slug {
		return false
	}
	if q.Status != "" && doc.Status != q.Status {
		return false
	}
	if q.DueBefore != nil && (doc.PublishAt == nil || doc.PublishAt.After(*q.DueBefore)) {
		return false
	}
	return true
}

func containsKind(kinds []Kind, kind Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
