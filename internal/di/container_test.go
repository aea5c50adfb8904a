package di

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-command/dispatcher"

	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/logging/gologger"
	"github.com/goliatone/go-sitecms/internal/runtimeconfig"
)

func testConfig() runtimeconfig.Config {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "nop"
	return cfg
}

func newTestContainer(t *testing.T, cfg runtimeconfig.Config, opts ...Option) *Container {
	t.Helper()
	container, err := NewContainer(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return container
}

func TestNewContainerDefaultsToMemory(t *testing.T) {
	container := newTestContainer(t, testConfig())

	if container.BunDB() != nil {
		t.Fatal("expected no database without a dsn")
	}
	if container.LoggerProvider() != nil {
		t.Fatalf("expected nop provider to leave loggers unset, got %T", container.LoggerProvider())
	}
	if container.DocumentService() == nil || container.Site() == nil || container.SiteAPI() == nil {
		t.Fatal("expected core services to be wired")
	}
	if container.MediaStore() == nil || container.FormPipeline() == nil || container.Sitemap() == nil {
		t.Fatal("expected media, forms and sitemap to be wired")
	}
	if container.MarkdownService() != nil {
		t.Fatal("expected markdown to stay disabled by default")
	}
	if got := len(container.Scheduler().Entries()); got != 3 {
		t.Fatalf("expected 3 scheduled jobs, got %d", got)
	}
	if codes := container.Locales().Codes(); len(codes) != 2 {
		t.Fatalf("unexpected locales %v", codes)
	}
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Site.URL = "not a url"
	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
}

func TestNewContainerUsesGoLoggerProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Level = "debug"

	container := newTestContainer(t, cfg)
	provider, ok := container.LoggerProvider().(*gologger.Provider)
	if !ok {
		t.Fatalf("expected go-logger provider, got %T", container.LoggerProvider())
	}
	if provider.GetLogger("sitecms.test") == nil {
		t.Fatal("expected logger from go-logger provider, got nil")
	}
}

func TestNewContainerSkipsDisabledScheduler(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Enabled = false

	container := newTestContainer(t, cfg)
	if container.Scheduler() != nil {
		t.Fatal("expected no scheduler when disabled")
	}
}

func TestNewContainerWithSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.DSN = fmt.Sprintf("file:di_container_%d?mode=memory&cache=shared&_fk=1", time.Now().UnixNano())
	cfg.Cache.RepositoryTTL = time.Minute

	container := newTestContainer(t, cfg)
	if container.BunDB() == nil {
		t.Fatal("expected database to be opened")
	}
	if container.cacheService == nil || container.keySerializer == nil {
		t.Fatal("expected repository cache to be configured")
	}

	ctx := context.Background()
	saved, err := container.DocumentService().Save(ctx, documents.SaveRequest{
		Kind:   documents.KindPage,
		Locale: "en",
		Title:  "About",
		URL:    "/about",
		Status: documents.StatusPublished,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := container.Site().ResolvePath(ctx, "en", "/about", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil || got.DocumentID != saved.DocumentID {
		t.Fatalf("expected saved page, got %+v", got)
	}
}

func TestNewContainerSubscribesCommandsOnDispatcher(t *testing.T) {
	cfg := testConfig()
	cfg.Markdown.Enabled = true
	filesystem := fstest.MapFS{
		"about.md":    {Data: []byte("---\ntitle: About\nurl: /about\nstatus: published\n---\n# About\n")},
		"nl/about.md": {Data: []byte("---\ntitle: Over ons\nurl: /nl/over-ons\nstatus: published\n---\n# Over ons\n")},
	}

	container := newTestContainer(t, cfg, WithMarkdownFS(filesystem))
	ctx := context.Background()

	if err := dispatcher.Dispatch(ctx, sitecmd.KeepWarmCommand{}); err != nil {
		t.Fatalf("dispatch keep-warm: %v", err)
	}
	if err := dispatcher.Dispatch(ctx, sitecmd.ImportMarkdownCommand{Directory: "."}); err != nil {
		t.Fatalf("dispatch import: %v", err)
	}

	pages, err := container.DocumentService().List(ctx, documents.Query{Kinds: []documents.Kind{documents.KindPage}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 imported pages, got %d", len(pages))
	}
}

func TestDispatchRegistryRejectsUnknownHandlers(t *testing.T) {
	reg := newDispatchRegistry(0)
	if err := reg.RegisterCommand(struct{}{}); err == nil {
		t.Fatal("expected unsupported handler error")
	}
}

func TestSiteAPIIsServed(t *testing.T) {
	cfg := testConfig()
	cfg.Site.CronSecret = "secret"
	container := newTestContainer(t, cfg)

	rec := httptest.NewRecorder()
	container.SiteAPI().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/keep-warm", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected keep-warm 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	container.SiteAPI().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cron", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected cron to require the configured secret, got %d", rec.Code)
	}
}
