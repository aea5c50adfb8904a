package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-sitecms/internal/cache"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/revalidate"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

const (
	cacheKey  = "sitemap"
	namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// DefaultTTL bounds how long a cached sitemap survives without an
	// invalidation.
	DefaultTTL = time.Hour
)

// Entry is one <url> element.
type Entry struct {
	Loc     string `xml:"loc" json:"loc"`
	LastMod string `xml:"lastmod,omitempty" json:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []Entry  `xml:"url"`
}

// Source lists documents. documents.Service satisfies it.
type Source interface {
	List(ctx context.Context, query documents.Query) ([]*documents.Document, error)
}

type Option func(*Builder)

func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(b *Builder) {
		b.store = store
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		if clock != nil {
			b.now = clock
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder assembles the sitemap: home and blog index for every locale, then
// published pages and published blog posts.
type Builder struct {
	source  Source
	locales *i18n.Registry
	links   *Links
	store   cache.Store
	ttl     time.Duration
	now     func() time.Time
	logger  interfaces.Logger
}

func NewBuilder(source Source, locales *i18n.Registry, links *Links, opts ...Option) *Builder {
	b := &Builder{
		source:  source,
		locales: locales,
		links:   links,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Entries returns the sitemap entries, served from the tag cache when one is
// configured. Page and blog post writes drop the cached copy.
func (b *Builder) Entries(ctx context.Context) ([]Entry, error) {
	tags := []string{revalidate.PagesSitemapTag, revalidate.BlogPostsSitemapTag}
	return cache.Remember(ctx, b.store, cacheKey, tags, b.ttl, b.collect)
}

// XML renders the entries as a sitemaps.org urlset.
func (b *Builder) XML(ctx context.Context) ([]byte, error) {
	entries, err := b.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(urlSet{Xmlns: namespace, URLs: entries}); err != nil {
		return nil, fmt.Errorf("sitemap encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) collect(ctx context.Context) ([]Entry, error) {
	fallback := b.now().UTC().Format(time.RFC3339)
	var entries []Entry

	for _, locale := range b.locales.Codes() {
		home, err := b.links.Home(locale)
		if err != nil {
			return nil, err
		}
		blog, err := b.links.Blog(locale)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Loc: home, LastMod: fallback}, Entry{Loc: blog, LastMod: fallback})
	}

	for _, locale := range b.locales.Codes() {
		pages, err := b.source.List(ctx, documents.Query{
			Kinds:  []documents.Kind{documents.KindPage},
			Locale: locale,
			Status: documents.StatusPublished,
		})
		if err != nil {
			return nil, fmt.Errorf("sitemap pages %s: %w", locale, err)
		}
		for _, page := range sortByURL(pages) {
			if page.URLWithoutLocale == "" || page.URLWithoutLocale == "/" {
				continue
			}
			loc, err := b.links.Page(locale, page.URLWithoutLocale)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Loc: loc, LastMod: lastMod(page, fallback)})
		}
	}

	for _, locale := range b.locales.Codes() {
		posts, err := b.source.List(ctx, documents.Query{
			Kinds:  []documents.Kind{documents.KindBlogPost},
			Locale: locale,
			Status: documents.StatusPublished,
		})
		if err != nil {
			return nil, fmt.Errorf("sitemap posts %s: %w", locale, err)
		}
		for _, post := range sortByURL(posts) {
			if post.Slug == "" {
				continue
			}
			loc, err := b.links.Post(locale, post.Slug)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Loc: loc, LastMod: lastMod(post, fallback)})
		}
	}

	b.logger.Debug("sitemap.built", "entries", len(entries))
	return entries, nil
}

func lastMod(doc *documents.Document, fallback string) string {
	if doc.UpdatedAt.IsZero() {
		return fallback
	}
	return doc.UpdatedAt.UTC().Format(time.RFC3339)
}

func sortByURL(docs []*documents.Document) []*documents.Document {
	sorted := slices.Clone(docs)
	slices.SortFunc(sorted, func(a, b *documents.Document) int {
		return strings.Compare(a.URL, b.URL)
	})
	return sorted
}
