package routes

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/resolver"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// Page names the language switcher sends for slug-addressed documents.
const (
	PageHome = "home"
	PageBlog = "blog"
)

// Request describes the page a visitor is on.
type Request struct {
	Locale          string
	CurrentPage     string
	CurrentPageSlug string
}

// Site is the part of resolver.Site the localized routes need.
type Site interface {
	Resolve(ctx context.Context, query resolver.Query) (*documents.Document, error)
	ResolveAllLocales(ctx context.Context, query resolver.Query) (map[string]*documents.Document, error)
}

// Localizer maps the current page to its URL in every locale. Locales without
// an equivalent published document fall back to their home path.
type Localizer struct {
	site    Site
	locales *i18n.Registry
	logger  interfaces.Logger
}

func NewLocalizer(site Site, locales *i18n.Registry, logger interfaces.Logger) *Localizer {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Localizer{site: site, locales: locales, logger: logger}
}

func (l *Localizer) LocalizedURLs(ctx context.Context, req Request) (map[string]string, error) {
	current := strings.TrimSpace(req.CurrentPage)
	if current == "" {
		return nil, goerrors.NewValidation("currentPage is required", goerrors.FieldError{
			Field:   "currentPage",
			Message: "is required",
		}).WithTextCode("CURRENT_PAGE_REQUIRED")
	}
	locale, err := l.locales.Resolve(req.Locale)
	if err != nil {
		locale = l.locales.Default()
	}

	slug := strings.TrimSpace(req.CurrentPageSlug)
	if (current == PageHome || current == PageBlog) && slug != "" {
		kind := documents.KindPage
		if current == PageBlog {
			kind = documents.KindBlogPost
		}
		return l.bySlug(ctx, kind, slug, locale)
	}

	kind, err := documents.ParseKind(current)
	if err != nil || !kind.IsGlobal() {
		l.logger.Debug("routes.localized.unknown_page", "current_page", current)
		return l.roots(), nil
	}
	docs, err := l.site.ResolveAllLocales(ctx, resolver.Query{Kind: kind})
	if err != nil {
		return nil, err
	}
	return l.merge(docs), nil
}

func (l *Localizer) bySlug(ctx context.Context, kind documents.Kind, slug, locale string) (map[string]string, error) {
	doc, err := l.site.Resolve(ctx, resolver.Query{
		Kind:   kind,
		Field:  resolver.FieldSlug,
		Value:  slug,
		Locale: locale,
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return l.roots(), nil
	}
	docs, err := l.site.ResolveAllLocales(ctx, resolver.Query{
		Kind:  kind,
		Field: resolver.FieldID,
		Value: doc.DocumentID.String(),
	})
	if err != nil {
		return nil, err
	}
	return l.merge(docs), nil
}

func (l *Localizer) merge(docs map[string]*documents.Document) map[string]string {
	out := l.roots()
	for locale, doc := range docs {
		if doc != nil && doc.URL != "" {
			out[locale] = doc.URL
		}
	}
	return out
}

func (l *Localizer) roots() map[string]string {
	out := make(map[string]string, len(l.locales.Codes()))
	for _, locale := range l.locales.Codes() {
		out[locale] = l.locales.HomePath(locale)
	}
	return out
}
