package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/resolver"
	"github.com/goliatone/go-sitecms/internal/revalidate"
)

const (
	// DraftCookie carries the preview secret once draft mode is enabled.
	DraftCookie = "site_draft"

	cacheHeader     = "X-Cache"
	jsonContentType = "application/json; charset=utf-8"
	blogSegment     = "/blog"
	relatedPosts    = 3
)

var legalPaths = map[string]documents.Kind{
	"/" + string(documents.KindPrivacyPolicy):      documents.KindPrivacyPolicy,
	"/" + string(documents.KindCookiePolicy):       documents.KindCookiePolicy,
	"/" + string(documents.KindTermsAndConditions): documents.KindTermsAndConditions,
}

// siteTarget is a request path split into what it renders.
type siteTarget struct {
	route  revalidate.Route
	kind   documents.Kind
	locale string
	slug   string
	path   string
}

// pageView is the JSON view model of a site route.
type pageView struct {
	Locale          string                `json:"locale"`
	CurrentPage     string                `json:"currentPage"`
	CurrentPageSlug string                `json:"currentPageSlug,omitempty"`
	Draft           bool                  `json:"draft,omitempty"`
	Document        *documents.Document   `json:"document,omitempty"`
	Posts           []*documents.Document `json:"posts,omitempty"`
	Navigation      *documents.Document   `json:"navigation,omitempty"`
	Footer          *documents.Document   `json:"footer,omitempty"`
}

func (api *SiteAPI) serveSite(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}
	requestPath := cleanPath(c.Request.URL.Path)
	if strings.HasPrefix(requestPath, "/api/") || requestPath == "/api" {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}
	if canonical, ok := api.canonicalPath(requestPath); ok {
		c.Redirect(http.StatusPermanentRedirect, canonical)
		return
	}
	if api.site == nil {
		writeError(c, api.logger, errNotConfigured)
		return
	}

	target := api.match(requestPath)
	draft := api.draftMode(c)
	render := func(ctx context.Context) (revalidate.Entry, error) {
		return api.render(ctx, target, draft)
	}

	var (
		entry revalidate.Entry
		state revalidate.State
		err   error
	)
	if draft {
		entry, err = render(c.Request.Context())
		state = "bypass"
	} else {
		entry, state, err = api.routes.Serve(c.Request.Context(), target.route, requestPath, render)
	}
	if err != nil {
		writeError(c, api.logger, err)
		return
	}

	c.Header(cacheHeader, string(state))
	if entry.Location != "" {
		c.Redirect(entry.Status, entry.Location)
		return
	}
	c.Data(entry.Status, entry.ContentType, entry.Body)
}

// canonicalPath redirects default-locale URLs carrying their prefix, such as
// /en/about, to the unprefixed form.
func (api *SiteAPI) canonicalPath(requestPath string) (string, bool) {
	locale, rest, ok := api.locales.MatchPrefix(requestPath)
	if !ok || !api.locales.IsDefault(locale) {
		return "", false
	}
	return api.locales.Localize(locale, rest), true
}

func (api *SiteAPI) match(requestPath string) siteTarget {
	locale, rest, ok := api.locales.MatchPrefix(requestPath)
	if !ok {
		locale = api.locales.Default()
		rest = requestPath
	}
	target := siteTarget{locale: locale, path: rest}

	switch {
	case rest == "" || rest == "/":
		target.route, target.kind = revalidate.RouteHome, documents.KindHome
	case rest == blogSegment:
		target.route, target.kind = revalidate.RouteBlog, documents.KindBlog
	case strings.HasPrefix(rest, blogSegment+"/") && !strings.Contains(rest[len(blogSegment)+1:], "/"):
		target.route, target.kind = revalidate.RouteBlogPost, documents.KindBlogPost
		target.slug = rest[len(blogSegment)+1:]
	default:
		if kind, legal := legalPaths[rest]; legal {
			target.route, target.kind = revalidate.RouteLegal, kind
		} else {
			target.route, target.kind = revalidate.RoutePage, documents.KindPage
		}
	}
	return target
}

// draftMode enables previews for ?preview=<secret> and remembers the choice
// in DraftCookie. ?exitPreview=true clears it.
func (api *SiteAPI) draftMode(c *gin.Context) bool {
	if api.previewSecret == "" {
		return false
	}
	if parseBoolQuery(c.Query("exitPreview"), false) {
		c.SetCookie(DraftCookie, "", -1, "/", "", api.secureCookie, true)
		return false
	}
	if preview := c.Query("preview"); preview != "" && secretMatches(preview, api.previewSecret) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(DraftCookie, api.previewSecret, 0, "/", "", api.secureCookie, true)
		return true
	}
	if cookie, err := c.Cookie(DraftCookie); err == nil && secretMatches(cookie, api.previewSecret) {
		return true
	}
	return false
}

func (api *SiteAPI) render(ctx context.Context, target siteTarget, draft bool) (revalidate.Entry, error) {
	view := pageView{Locale: target.locale, Draft: draft}
	var err error

	switch target.kind {
	case documents.KindHome:
		view.CurrentPage = string(documents.KindHome)
		view.Document, err = api.site.Resolve(ctx, resolver.Query{Kind: documents.KindHome, Locale: target.locale, Depth: 1, Draft: draft})
	case documents.KindBlog:
		view.CurrentPage = string(documents.KindBlog)
		view.Document, err = api.site.Resolve(ctx, resolver.Query{Kind: documents.KindBlog, Locale: target.locale, Draft: draft})
		if err == nil {
			view.Posts, err = api.posts(ctx, target.locale, "", 0)
		}
	case documents.KindBlogPost:
		view.CurrentPage = string(documents.KindBlog)
		view.CurrentPageSlug = target.slug
		view.Document, err = api.site.Resolve(ctx, resolver.Query{
			Kind:   documents.KindBlogPost,
			Field:  resolver.FieldSlug,
			Value:  target.slug,
			Locale: target.locale,
			Depth:  2,
			Draft:  draft,
		})
		if err == nil && (view.Document == nil || (!draft && !view.Document.IsPublished())) {
			return redirectEntry(api.locales.Localize(target.locale, blogSegment)), nil
		}
		if err == nil {
			view.Posts, err = api.posts(ctx, target.locale, target.slug, relatedPosts)
		}
	case documents.KindPage:
		view.CurrentPage = string(documents.KindHome)
		view.Document, err = api.site.ResolvePath(ctx, target.locale, target.path, draft)
		if err == nil && view.Document != nil {
			view.CurrentPageSlug = view.Document.Slug
		}
	default:
		view.CurrentPage = string(target.kind)
		view.Document, err = api.site.Resolve(ctx, resolver.Query{Kind: target.kind, Locale: target.locale, Draft: draft})
	}
	if err != nil {
		return revalidate.Entry{}, err
	}
	if view.Document == nil && target.kind != documents.KindBlog {
		return jsonEntry(http.StatusNotFound, errorResponse{Error: "Not found"})
	}
	if err := api.chrome(ctx, &view, draft); err != nil {
		return revalidate.Entry{}, err
	}
	return jsonEntry(http.StatusOK, gin.H{"data": view})
}

// chrome resolves the navigation and footer globals concurrently.
func (api *SiteAPI) chrome(ctx context.Context, view *pageView, draft bool) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		doc, err := api.site.Resolve(gctx, resolver.Query{Kind: documents.KindNavigation, Locale: view.Locale, Depth: 1, Draft: draft})
		view.Navigation = doc
		return err
	})
	group.Go(func() error {
		doc, err := api.site.Resolve(gctx, resolver.Query{Kind: documents.KindFooter, Locale: view.Locale, Depth: 1, Draft: draft})
		view.Footer = doc
		return err
	})
	return group.Wait()
}

// posts lists published blog posts newest first, skipping exclude. A limit
// of zero returns every post.
func (api *SiteAPI) posts(ctx context.Context, locale, exclude string, limit int) ([]*documents.Document, error) {
	if api.lister == nil {
		return nil, nil
	}
	docs, err := api.lister.List(ctx, documents.Query{
		Kinds:  []documents.Kind{documents.KindBlogPost},
		Locale: locale,
		Status: documents.StatusPublished,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return publishedAt(docs[i]) > publishedAt(docs[j])
	})
	out := make([]*documents.Document, 0, len(docs))
	for _, doc := range docs {
		if exclude != "" && doc.Slug == exclude {
			continue
		}
		out = append(out, doc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func publishedAt(doc *documents.Document) int64 {
	if doc.PublishedAt != nil {
		return doc.PublishedAt.UnixNano()
	}
	return doc.UpdatedAt.UnixNano()
}

func jsonEntry(status int, payload any) (revalidate.Entry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return revalidate.Entry{}, err
	}
	return revalidate.Entry{Status: status, ContentType: jsonContentType, Body: body}, nil
}

func redirectEntry(location string) revalidate.Entry {
	return revalidate.Entry{Status: http.StatusTemporaryRedirect, Location: location}
}
