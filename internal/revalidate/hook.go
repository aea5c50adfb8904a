package revalidate

import (
	"context"
	"fmt"

	"github.com/goliatone/go-sitecms/internal/cache"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// Hook invalidates cache tags and route paths after document writes.
type Hook struct {
	store   cache.Store
	routes  *RouteCache
	locales *i18n.Registry
	logger  interfaces.Logger
}

var _ documents.Hook = (*Hook)(nil)

func NewHook(store cache.Store, routes *RouteCache, locales *i18n.Registry, logger interfaces.Logger) *Hook {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Hook{store: store, routes: routes, locales: locales, logger: logger}
}

func (h *Hook) AfterChange(ctx context.Context, doc *documents.Document, previousURL string) error {
	return h.invalidate(ctx, doc, previousURL)
}

func (h *Hook) AfterDelete(ctx context.Context, doc *documents.Document) error {
	return h.invalidate(ctx, doc, "")
}

func (h *Hook) invalidate(ctx context.Context, doc *documents.Document, previousURL string) error {
	if doc == nil {
		return nil
	}
	tags := TagsFor(doc, previousURL)
	logger := logging.WithDocumentContext(h.logger, string(doc.Kind), doc.Locale, doc.URL)

	var storeErr error
	if h.store != nil {
		removed, err := h.store.InvalidateTags(ctx, tags...)
		if err != nil {
			storeErr = fmt.Errorf("invalidate tags %s: %w", joinTags(tags), err)
		} else {
			logger.Debug("revalidate.tags", "tags", joinTags(tags), "removed", removed)
		}
	}

	paths := h.Paths(doc, previousURL)
	if h.routes != nil {
		if paths == nil {
			h.routes.RevalidateAll()
		} else {
			for _, path := range paths {
				h.routes.RevalidatePath(path)
			}
		}
	}
	logger.Info("revalidate.paths", "paths", paths)
	return storeErr
}

// Paths lists the route paths affected by a change to doc. A nil result
// means every route is affected, which is the case for navigation and footer
// content rendered on every page.
func (h *Hook) Paths(doc *documents.Document, previousURL string) []string {
	if !doc.Kind.IsRoutable() {
		return nil
	}
	paths := make([]string, 0, 3)
	if doc.URL != "" {
		paths = append(paths, doc.URL)
	}
	if previousURL != "" && previousURL != doc.URL {
		paths = append(paths, previousURL)
	}
	if doc.Kind == documents.KindBlogPost && h.locales != nil {
		paths = append(paths, h.locales.Localize(doc.Locale, "/blog"))
	}
	return paths
}
