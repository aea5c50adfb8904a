package resolver

import (
	"context"
	"time"

	"github.com/goliatone/go-sitecms/internal/cache"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/revalidate"
)

// Cached memoizes published lookups in a tag store. Draft lookups always go
// to the wrapped resolver.
type Cached struct {
	next    Resolver
	store   cache.Store
	locales *i18n.Registry
	ttl     time.Duration
}

func NewCached(next Resolver, store cache.Store, locales *i18n.Registry, ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, locales: locales, ttl: ttl}
}

func (c *Cached) Resolve(ctx context.Context, query Query) (*documents.Document, error) {
	if query.Draft || c.store == nil {
		return c.next.Resolve(ctx, query)
	}
	locale, err := c.locales.Resolve(query.Locale)
	if err != nil {
		return nil, nil
	}
	query.Locale = locale

	key := revalidate.Key(query.Kind, query.Field, query.Value, locale, query.Depth)
	doc, err := cache.Remember(ctx, c.store, key, c.tags(query), c.ttl, func(ctx context.Context) (*documents.Document, error) {
		return c.next.Resolve(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// tags are computed from the query so that misses are invalidated when a
// matching document appears.
func (c *Cached) tags(query Query) []string {
	tags := []string{revalidate.CollectionTag(query.Kind, query.Locale)}
	if query.Field == FieldURL && query.Value != "" {
		tags = append(tags, revalidate.DocumentTag(query.Kind, query.Value, query.Locale))
	}
	if query.Depth > 0 {
		for _, kind := range documents.Kinds() {
			if kind != query.Kind {
				tags = append(tags, revalidate.CollectionTag(kind, query.Locale))
			}
		}
	}
	return tags
}
