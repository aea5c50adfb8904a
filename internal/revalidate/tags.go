package revalidate

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-sitecms/internal/documents"
)

const (
	PagesSitemapTag     = "pages-sitemap"
	BlogPostsSitemapTag = "blog-posts-sitemap"
)

// CollectionTag covers every cached lookup of kind in locale.
func CollectionTag(kind documents.Kind, locale string) string {
	return string(kind) + "_" + locale
}

// DocumentTag covers cached lookups of the document served at url.
func DocumentTag(kind documents.Kind, url, locale string) string {
	return string(kind) + "_" + url + "_" + locale
}

// SitemapTag returns the sitemap tag affected by kind, or "".
func SitemapTag(kind documents.Kind) string {
	switch kind {
	case documents.KindPage:
		return PagesSitemapTag
	case documents.KindBlogPost:
		return BlogPostsSitemapTag
	default:
		return ""
	}
}

// Key is the cache key of a resolver lookup.
func Key(kind documents.Kind, field, value, locale string, depth int) string {
	return fmt.Sprintf("%s:%s:%s:%s:d%d", kind, field, value, locale, depth)
}

// TagsFor lists every tag a change to doc must invalidate. previousURL is the
// URL before the change and may be blank.
func TagsFor(doc *documents.Document, previousURL string) []string {
	if doc == nil {
		return nil
	}
	tags := []string{CollectionTag(doc.Kind, doc.Locale)}
	if doc.URL != "" {
		tags = append(tags, DocumentTag(doc.Kind, doc.URL, doc.Locale))
	}
	if previousURL != "" && previousURL != doc.URL {
		tags = append(tags, DocumentTag(doc.Kind, previousURL, doc.Locale))
	}
	if tag := SitemapTag(doc.Kind); tag != "" {
		tags = append(tags, tag)
	}
	return tags
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
