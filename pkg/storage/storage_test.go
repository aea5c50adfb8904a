package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
)

var dbCounter atomic.Int64

func openMemory(t *testing.T) Config {
	t.Helper()
	return Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:storage_test_%d?mode=memory&cache=shared", dbCounter.Add(1)),
	}
}

func TestNormalizedDriver(t *testing.T) {
	cases := map[string]string{
		"":           DriverSQLite,
		"SQLite":     DriverSQLite,
		"postgresql": DriverPostgres,
		"pg":         DriverPostgres,
	}
	for input, want := range cases {
		got, err := Config{Driver: input}.NormalizedDriver()
		if err != nil || got != want {
			t.Fatalf("driver %q: got %q, %v", input, got, err)
		}
	}
	if _, err := (Config{Driver: "mysql"}).NormalizedDriver(); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error without dsn")
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, openMemory(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, db); err != nil {
			t.Fatalf("ensure schema run %d: %v", i+1, err)
		}
	}

	for _, model := range Models() {
		if _, err := db.NewSelect().Model(model).Count(ctx); err != nil {
			t.Fatalf("count %T: %v", model, err)
		}
	}
}

func TestSchemaEnforcesOneRowPerDocumentLocale(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, openMemory(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	locales := i18n.MustNewRegistry(i18n.DefaultConfig())
	svc := documents.NewService(documents.NewBunRepository(db), locales)
	doc, err := svc.Save(ctx, documents.SaveRequest{Kind: documents.KindPage, Locale: "en", Title: "About", URL: "/about"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	duplicate := *doc
	duplicate.ID = uuid.New()
	if _, err := db.NewInsert().Model(&duplicate).Exec(ctx); err == nil {
		t.Fatal("expected unique index to reject a second row for the same document and locale")
	}
}
