package resolver

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
)

// Decorator wraps a resolver, typically with a cache.
type Decorator func(Resolver) Resolver

// Site is the single lookup entry point for request handlers. The draft flag
// on each query picks the uncached path.
type Site struct {
	direct    Resolver
	published Resolver
	locales   *i18n.Registry
}

func NewSite(direct Resolver, locales *i18n.Registry, decorate Decorator) *Site {
	published := direct
	if decorate != nil {
		published = decorate(direct)
	}
	return &Site{direct: direct, published: published, locales: locales}
}

func (s *Site) Resolve(ctx context.Context, query Query) (*documents.Document, error) {
	if query.Draft {
		return s.direct.Resolve(ctx, query)
	}
	return s.published.Resolve(ctx, query)
}

// ResolveAllLocales runs query once per locale concurrently and waits for
// every lookup. Missing locales are absent from the result.
func (s *Site) ResolveAllLocales(ctx context.Context, query Query) (map[string]*documents.Document, error) {
	var mu sync.Mutex
	results := make(map[string]*documents.Document)

	group, gctx := errgroup.WithContext(ctx)
	for _, locale := range s.locales.Codes() {
		q := query
		q.Locale = locale
		group.Go(func() error {
			doc, err := s.Resolve(gctx, q)
			if err != nil {
				return err
			}
			if doc != nil {
				mu.Lock()
				results[q.Locale] = doc
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolvePath looks up the document served at path in locale. path is
// locale-less; "/" resolves the locale home document.
func (s *Site) ResolvePath(ctx context.Context, locale, path string, draft bool) (*documents.Document, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return s.Resolve(ctx, Query{Kind: documents.KindHome, Locale: locale, Draft: draft})
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.Resolve(ctx, Query{
		Kind:   documents.KindPage,
		Field:  FieldURL,
		Value:  s.locales.Localize(locale, path),
		Locale: locale,
		Depth:  1,
		Draft:  draft,
	})
}

// Locales exposes the registry the site resolves against.
func (s *Site) Locales() *i18n.Registry {
	return s.locales
}
