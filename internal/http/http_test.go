package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/goliatone/go-sitecms/internal/cache"
	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/forms"
	sitehttp "github.com/goliatone/go-sitecms/internal/http"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/ratelimit"
	"github.com/goliatone/go-sitecms/internal/resolver"
	"github.com/goliatone/go-sitecms/internal/revalidate"
	"github.com/goliatone/go-sitecms/internal/routes"
	"github.com/goliatone/go-sitecms/internal/sitemap"
)

const (
	cronSecret    = "cron-secret"
	previewSecret = "preview-secret"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type siteFixture struct {
	docs    documents.Service
	form    *forms.Form
	handler http.Handler
}

func newSiteFixture(t *testing.T, opts ...sitehttp.SiteOption) *siteFixture {
	t.Helper()
	locales := i18n.MustNewRegistry(i18n.DefaultConfig())
	repo := documents.NewMemoryRepository()
	store := cache.NewMemoryStore()
	routeCache := revalidate.NewRouteCache()
	docs := documents.NewService(repo, locales, documents.WithHooks(revalidate.NewHook(store, routeCache, locales, nil)))
	site := resolver.NewSite(resolver.NewDirect(repo, locales, nil), locales, func(next resolver.Resolver) resolver.Resolver {
		return resolver.NewCached(next, store, locales, time.Hour)
	})

	set, err := sitecmd.RegisterSiteCommands(nil, sitecmd.Dependencies{
		Routes:    routeCache,
		Tags:      store,
		Publisher: docs,
		Pinger:    docs,
	}, nil)
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}

	formService := forms.NewService(forms.NewMemoryFormRepository(), locales)
	form, err := formService.Save(context.Background(), forms.SaveRequest{
		Locale: "en",
		Title:  "Contact",
		Fields: []forms.FieldDefinition{
			{Name: "name", Type: forms.FieldText},
			{Name: "email", Type: forms.FieldEmail, Required: true},
		},
	})
	if err != nil {
		t.Fatalf("save form: %v", err)
	}
	pipeline := forms.NewPipeline(formService, forms.NewMemorySubmissionRepository(), locales,
		forms.WithLimiter(ratelimit.NewMemoryLimiter(ratelimit.Config{})))

	builder := sitemap.NewBuilder(docs, locales, sitemap.NewLinks("https://example.com", locales), sitemap.WithCache(store, time.Hour))

	base := []sitehttp.SiteOption{
		sitehttp.WithLocales(locales),
		sitehttp.WithSite(site),
		sitehttp.WithLister(docs),
		sitehttp.WithLocalizer(routes.NewLocalizer(site, locales, nil)),
		sitehttp.WithSubmitter(pipeline),
		sitehttp.WithSitemap(builder),
		sitehttp.WithRouteCache(routeCache),
		sitehttp.WithCommands(set),
		sitehttp.WithCronSecret(cronSecret),
		sitehttp.WithPreviewSecret(previewSecret, false),
		sitehttp.WithRewrites(map[string]string{"/nl/privacybeleid": "/nl/privacy-policy"}),
		sitehttp.WithRedirectHosts(map[string]string{"site.example": "https://www.site.example"}),
		sitehttp.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	}
	api := sitehttp.NewSiteAPI(append(base, opts...)...)
	return &siteFixture{docs: docs, form: form, handler: api.Handler()}
}

func (f *siteFixture) save(t *testing.T, req documents.SaveRequest) *documents.Document {
	t.Helper()
	doc, err := f.docs.Save(context.Background(), req)
	if err != nil {
		t.Fatalf("save %s: %v", req.Title, err)
	}
	return doc
}

func (f *siteFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *siteFixture) get(target string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func viewOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	data, ok := decode(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data in %s", rec.Body.String())
	}
	return data
}

func TestCronEndpoint(t *testing.T) {
	f := newSiteFixture(t)
	f.save(t, documents.SaveRequest{Kind: documents.KindHome, Locale: "en", Title: "Home", Status: documents.StatusPublished})

	if rec := f.get("/"); rec.Header().Get("X-Cache") != string(revalidate.StateMiss) {
		t.Fatalf("expected first render to miss, got %q", rec.Header().Get("X-Cache"))
	}

	if rec := f.get("/api/cron"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cron", nil)
	req.Header.Set("Authorization", "Bearer "+cronSecret)
	rec := f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["ok"] != true || body["revalidated"] != float64(2) {
		t.Fatalf("unexpected body %v", body)
	}
	paths, _ := body["paths"].([]any)
	if len(paths) != 2 || paths[0] != "/" || paths[1] != "/nl" {
		t.Fatalf("unexpected paths %v", body["paths"])
	}
	if body["timestamp"] != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected timestamp %v", body["timestamp"])
	}

	if rec := f.get("/"); rec.Header().Get("X-Cache") != string(revalidate.StateStale) {
		t.Fatalf("expected stale entry after cron, got %q", rec.Header().Get("X-Cache"))
	}
}

func TestCronWithoutSecretIsOpen(t *testing.T) {
	f := newSiteFixture(t, sitehttp.WithCronSecret(""))
	if rec := f.get("/api/cron"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database unavailable") }

func TestKeepWarmAlwaysSucceeds(t *testing.T) {
	warmer := sitecmd.NewKeepWarmHandler(failingPinger{}, nil)
	f := newSiteFixture(t, sitehttp.WithCommands(&sitecmd.HandlerSet{KeepWarm: warmer}))

	rec := f.get("/api/keep-warm")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decode(t, rec); body["ok"] != true || body["message"] != "Function warmed up" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestLocalizedRoutesEndpoint(t *testing.T) {
	f := newSiteFixture(t)
	en := f.save(t, documents.SaveRequest{Kind: documents.KindPage, Locale: "en", Title: "About", Slug: "about", URL: "/about", Status: documents.StatusPublished})
	f.save(t, documents.SaveRequest{Kind: documents.KindPage, DocumentID: en.DocumentID, Locale: "nl", Title: "Over ons", Slug: "over-ons", URL: "/nl/over-ons", Status: documents.StatusPublished})

	rec := f.get("/api/localized-routes?locale=nl&currentPage=home&currentPageSlug=over-ons")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	urls, _ := viewOf(t, rec)["localizedUrls"].(map[string]any)
	if urls["en"] != "/about" || urls["nl"] != "/nl/over-ons" {
		t.Fatalf("unexpected urls %v", urls)
	}

	rec = f.get("/api/localized-routes?locale=nl")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "currentPage is required" {
		t.Fatalf("unexpected body %v", body)
	}
}

func submission(t *testing.T, client string, formID uuid.UUID, data []map[string]any) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{"form": formID.String(), "submissionData": data})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/forms/submissions?locale=en", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", client)
	return req
}

func submissionErrors(t *testing.T, rec *httptest.ResponseRecorder) []any {
	t.Helper()
	errs, _ := viewOf(t, rec)["errors"].([]any)
	if len(errs) == 0 {
		t.Fatalf("expected errors in %s", rec.Body.String())
	}
	return errs
}

func TestFormSubmissionEndpoint(t *testing.T) {
	f := newSiteFixture(t)

	rec := f.do(submission(t, "10.0.0.1", f.form.FormID, []map[string]any{
		{"field": "name", "value": "Ada"},
		{"field": "email", "value": "ada@example.com"},
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if data := viewOf(t, rec); data["form"] != f.form.FormID.String() {
		t.Fatalf("unexpected submission %v", data)
	}

	rec = f.do(submission(t, "10.0.0.2", f.form.FormID, []map[string]any{{"field": "name", "value": "Ada"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", rec.Code)
	}
	submissionErrors(t, rec)

	rec = f.do(submission(t, "10.0.0.3", uuid.New(), []map[string]any{{"field": "email", "value": "a@example.com"}}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown form, got %d", rec.Code)
	}
}

func TestFormSubmissionRateLimit(t *testing.T) {
	f := newSiteFixture(t)
	data := []map[string]any{{"field": "email", "value": "ada@example.com"}}

	for i := 0; i < ratelimit.DefaultMax; i++ {
		if rec := f.do(submission(t, "10.0.0.9", f.form.FormID, data)); rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i+1, rec.Code)
		}
	}
	rec := f.do(submission(t, "10.0.0.9", f.form.FormID, data))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	errs := submissionErrors(t, rec)
	if item, _ := errs[0].(map[string]any); item["message"] != ratelimit.Message {
		t.Fatalf("unexpected error %v", errs[0])
	}

	if rec := f.do(submission(t, "10.0.0.10", f.form.FormID, data)); rec.Code != http.StatusCreated {
		t.Fatalf("expected another client to be accepted, got %d", rec.Code)
	}
}

func TestFormSubmissionBodyLimit(t *testing.T) {
	f := newSiteFixture(t, sitehttp.WithMaxBodyBytes(16))
	rec := f.do(submission(t, "10.0.0.1", f.form.FormID, []map[string]any{{"field": "email", "value": "ada@example.com"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestSitemapEndpoint(t *testing.T) {
	f := newSiteFixture(t)
	f.save(t, documents.SaveRequest{Kind: documents.KindPage, Locale: "en", Title: "About", URL: "/about", Status: documents.StatusPublished})

	rec := f.get("/sitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/xml") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	for _, loc := range []string{"https://example.com/nl/blog", "https://example.com/about"} {
		if !strings.Contains(rec.Body.String(), "<loc>"+loc+"</loc>") {
			t.Fatalf("expected %s in sitemap:\n%s", loc, rec.Body.String())
		}
	}
}

func TestSiteRoutes(t *testing.T) {
	f := newSiteFixture(t)
	f.save(t, documents.SaveRequest{Kind: documents.KindHome, Locale: "nl", Title: "Thuis", Status: documents.StatusPublished})
	en := f.save(t, documents.SaveRequest{Kind: documents.KindPage, Locale: "en", Title: "About", Slug: "about", URL: "/about", Status: documents.StatusPublished})
	f.save(t, documents.SaveRequest{Kind: documents.KindPage, DocumentID: en.DocumentID, Locale: "nl", Title: "Over ons", Slug: "over-ons", URL: "/nl/over-ons", Status: documents.StatusPublished})
	f.save(t, documents.SaveRequest{Kind: documents.KindBlogPost, Locale: "en", Title: "Hello world", Status: documents.StatusPublished})
	f.save(t, documents.SaveRequest{Kind: documents.KindBlogPost, Locale: "en", Title: "Second post", Status: documents.StatusPublished})
	f.save(t, documents.SaveRequest{Kind: documents.KindPrivacyPolicy, Locale: "nl", Title: "Privacybeleid", Status: documents.StatusPublished})
	f.save(t, documents.SaveRequest{Kind: documents.KindNavigation, Locale: "nl", Title: "Menu", Status: documents.StatusPublished})

	cases := []struct {
		path        string
		currentPage string
		title       string
	}{
		{"/nl", "home", "Thuis"},
		{"/about", "home", "About"},
		{"/nl/over-ons", "home", "Over ons"},
		{"/blog/hello-world", "blog", "Hello world"},
		{"/nl/privacybeleid", "privacy-policy", "Privacybeleid"},
		{"/nl/privacy-policy", "privacy-policy", "Privacybeleid"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := f.get(tc.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			view := viewOf(t, rec)
			doc, _ := view["document"].(map[string]any)
			if view["currentPage"] != tc.currentPage || doc["title"] != tc.title {
				t.Fatalf("unexpected view %v", view)
			}
		})
	}

	view := viewOf(t, f.get("/nl/over-ons"))
	if view["currentPageSlug"] != "over-ons" {
		t.Fatalf("expected page slug, got %v", view["currentPageSlug"])
	}
	if nav, _ := view["navigation"].(map[string]any); nav["title"] != "Menu" {
		t.Fatalf("expected navigation global, got %v", view["navigation"])
	}

	view = viewOf(t, f.get("/blog"))
	if posts, _ := view["posts"].([]any); len(posts) != 2 {
		t.Fatalf("expected two posts on the blog index, got %v", view["posts"])
	}
	view = viewOf(t, f.get("/blog/hello-world"))
	if posts, _ := view["posts"].([]any); len(posts) != 1 {
		t.Fatalf("expected one related post, got %v", view["posts"])
	}

	if rec := f.get("/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := f.get("/api/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown api route, got %d", rec.Code)
	}
}

func TestSiteRedirects(t *testing.T) {
	f := newSiteFixture(t)

	rec := f.get("/nl/blog/missing")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/nl/blog" {
		t.Fatalf("expected redirect to /nl/blog, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = f.get("/en/about")
	if rec.Code != http.StatusPermanentRedirect || rec.Header().Get("Location") != "/about" {
		t.Fatalf("expected canonical redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/about?ref=mail", nil)
	req.Host = "site.example"
	rec = f.do(req)
	if rec.Code != http.StatusPermanentRedirect || rec.Header().Get("Location") != "https://www.site.example/about?ref=mail" {
		t.Fatalf("expected host redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestDraftMode(t *testing.T) {
	f := newSiteFixture(t)
	f.save(t, documents.SaveRequest{Kind: documents.KindPage, Locale: "en", Title: "Draft page", URL: "/draft-page"})

	if rec := f.get("/draft-page"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected drafts to be hidden, got %d", rec.Code)
	}
	if rec := f.get("/draft-page?preview=wrong"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected wrong secret to be ignored, got %d", rec.Code)
	}

	rec := f.get("/draft-page?preview=" + previewSecret)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected draft to render in preview, got %d", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "bypass" {
		t.Fatalf("expected preview to bypass the route cache, got %q", rec.Header().Get("X-Cache"))
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sitehttp.DraftCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected draft cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/draft-page", nil)
	req.AddCookie(cookie)
	if rec := f.do(req); rec.Code != http.StatusOK {
		t.Fatalf("expected cookie to keep draft mode, got %d", rec.Code)
	}
	if view := viewOf(t, f.do(req)); view["draft"] != true {
		t.Fatalf("expected draft flag, got %v", view["draft"])
	}
}

func TestSiteRejectsOtherMethods(t *testing.T) {
	f := newSiteFixture(t)
	if rec := f.do(httptest.NewRequest(http.MethodDelete, "/about", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
