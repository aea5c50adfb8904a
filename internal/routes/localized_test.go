package routes_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/resolver"
	"github.com/goliatone/go-sitecms/internal/routes"
	"github.com/goliatone/go-sitecms/pkg/testsupport"
)

func newLocalizer(t *testing.T) (*routes.Localizer, documents.Service) {
	t.Helper()
	locales := i18n.MustNewRegistry(i18n.DefaultConfig())
	repo := documents.NewMemoryRepository()
	svc := documents.NewService(repo, locales)
	site := resolver.NewSite(resolver.NewDirect(repo, locales, nil), locales, nil)
	return routes.NewLocalizer(site, locales, nil), svc
}

func save(t *testing.T, svc documents.Service, req documents.SaveRequest) *documents.Document {
	t.Helper()
	doc, err := svc.Save(context.Background(), req)
	if err != nil {
		t.Fatalf("save %s: %v", req.Title, err)
	}
	return doc
}

func assertURLs(t *testing.T, got map[string]string, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for locale, url := range want {
		if got[locale] != url {
			t.Fatalf("locale %s: got %q, want %q (all: %v)", locale, got[locale], url, got)
		}
	}
}

func TestLocalizedURLsForPages(t *testing.T) {
	localizer, svc := newLocalizer(t)
	en := save(t, svc, documents.SaveRequest{Kind: documents.KindPage, Locale: "en", Title: "About", Slug: "about", URL: "/about", Status: documents.StatusPublished})
	save(t, svc, documents.SaveRequest{Kind: documents.KindPage, DocumentID: en.DocumentID, Locale: "nl", Title: "Over ons", Slug: "over-ons", URL: "/nl/over-ons", Status: documents.StatusPublished})

	got, err := localizer.LocalizedURLs(context.Background(), routes.Request{Locale: "nl", CurrentPage: routes.PageHome, CurrentPageSlug: "over-ons"})
	if err != nil {
		t.Fatalf("localized urls: %v", err)
	}
	assertURLs(t, got, map[string]string{"en": "/about", "nl": "/nl/over-ons"})
}

func TestLocalizedURLsForBlogPosts(t *testing.T) {
	localizer, svc := newLocalizer(t)
	save(t, svc, documents.SaveRequest{Kind: documents.KindBlogPost, Locale: "en", Title: "Hello world", Status: documents.StatusPublished})

	got, err := localizer.LocalizedURLs(context.Background(), routes.Request{Locale: "en", CurrentPage: routes.PageBlog, CurrentPageSlug: "hello-world"})
	if err != nil {
		t.Fatalf("localized urls: %v", err)
	}
	assertURLs(t, got, map[string]string{"en": "/blog/hello-world", "nl": "/nl"})
}

func TestLocalizedURLsIgnoreDrafts(t *testing.T) {
	localizer, svc := newLocalizer(t)
	save(t, svc, documents.SaveRequest{Kind: documents.KindBlogPost, Locale: "en", Title: "Draft post"})

	got, err := localizer.LocalizedURLs(context.Background(), routes.Request{Locale: "en", CurrentPage: routes.PageBlog, CurrentPageSlug: "draft-post"})
	if err != nil {
		t.Fatalf("localized urls: %v", err)
	}
	assertURLs(t, got, map[string]string{"en": "/", "nl": "/nl"})
}

func TestLocalizedURLsForGlobals(t *testing.T) {
	localizer, svc := newLocalizer(t)
	save(t, svc, documents.SaveRequest{Kind: documents.KindPrivacyPolicy, Locale: "en", Status: documents.StatusPublished})
	save(t, svc, documents.SaveRequest{Kind: documents.KindPrivacyPolicy, Locale: "nl", Status: documents.StatusPublished})

	got, err := localizer.LocalizedURLs(context.Background(), routes.Request{Locale: "en", CurrentPage: string(documents.KindPrivacyPolicy)})
	if err != nil {
		t.Fatalf("localized urls: %v", err)
	}
	assertURLs(t, got, map[string]string{"en": "/privacy-policy", "nl": "/nl/privacy-policy"})

	got, err = localizer.LocalizedURLs(context.Background(), routes.Request{Locale: "en", CurrentPage: "unknown-thing"})
	if err != nil {
		t.Fatalf("unknown page: %v", err)
	}
	assertURLs(t, got, map[string]string{"en": "/", "nl": "/nl"})
}

func TestLocalizedURLsRequireCurrentPage(t *testing.T) {
	localizer, _ := newLocalizer(t)
	if _, err := localizer.LocalizedURLs(context.Background(), routes.Request{Locale: "en"}); !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLocalizedURLsGolden(t *testing.T) {
	localizer, svc := newLocalizer(t)
	// Slugs are derived from titles.
	about := save(t, svc, documents.SaveRequest{Kind: documents.KindPage, Locale: "en", Title: "About", URL: "/about", Status: documents.StatusPublished})
	save(t, svc, documents.SaveRequest{Kind: documents.KindPage, DocumentID: about.DocumentID, Locale: "nl", Title: "Over ons", URL: "/nl/over-ons", Status: documents.StatusPublished})
	post := save(t, svc, documents.SaveRequest{Kind: documents.KindBlogPost, Locale: "en", Title: "Hello world", Status: documents.StatusPublished})
	save(t, svc, documents.SaveRequest{Kind: documents.KindBlogPost, DocumentID: post.DocumentID, Locale: "nl", Title: "Hallo wereld", Status: documents.StatusPublished})

	var want map[string]map[string]string
	testsupport.LoadGolden(t, "localized_urls.golden.json", &want)

	cases := map[string]routes.Request{
		"page_from_nl": {Locale: "nl", CurrentPage: routes.PageHome, CurrentPageSlug: "over-ons"},
		"page_from_en": {Locale: "en", CurrentPage: routes.PageHome, CurrentPageSlug: "about"},
		"post_from_en": {Locale: "en", CurrentPage: routes.PageBlog, CurrentPageSlug: "hello-world"},
		"unknown_slug": {Locale: "en", CurrentPage: routes.PageHome, CurrentPageSlug: "missing"},
	}
	if len(cases) != len(want) {
		t.Fatalf("golden has %d cases, test has %d", len(want), len(cases))
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := localizer.LocalizedURLs(context.Background(), req)
			if err != nil {
				t.Fatalf("localized urls: %v", err)
			}
			assertURLs(t, got, want[name])
		})
	}
}
