package sitecms_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-sitecms"
	"github.com/goliatone/go-sitecms/internal/documents"
)

func newModule(t *testing.T) *sitecms.Module {
	t.Helper()
	cfg := sitecms.DefaultConfig()
	cfg.Logging.Provider = "nop"
	cfg.Scheduler.Enabled = false

	module, err := sitecms.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = module.Close(context.Background()) })
	return module
}

func TestConfigValidateRejectsUnknownDefaultLocale(t *testing.T) {
	cfg := sitecms.DefaultConfig()
	cfg.I18N.DefaultLocale = "de"
	if err := cfg.Validate(); !errors.Is(err, sitecms.ErrDefaultLocaleNotListed) {
		t.Fatalf("expected ErrDefaultLocaleNotListed, got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := sitecms.DefaultConfig()
	cfg.Media.Backend = "ftp"
	if _, err := sitecms.New(context.Background(), cfg); !errors.Is(err, sitecms.ErrMediaBackendUnknown) {
		t.Fatalf("expected ErrMediaBackendUnknown, got %v", err)
	}
}

func TestModuleServesPublishedHome(t *testing.T) {
	module := newModule(t)
	if module.Markdown() != nil {
		t.Fatal("expected markdown to be disabled by default")
	}
	if module.Scheduler() != nil {
		t.Fatal("expected scheduler to be disabled")
	}

	_, err := module.Documents().Save(context.Background(), sitecms.DocumentSaveRequest{
		Kind:   documents.KindHome,
		Locale: "en",
		Title:  "Home",
		Status: documents.StatusPublished,
	})
	if err != nil {
		t.Fatalf("save home: %v", err)
	}

	rec := httptest.NewRecorder()
	module.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	module.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nl", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected untranslated home to 404, got %d", rec.Code)
	}
}
