package sitecmd

import (
	"context"
	"errors"
	"testing"
	"time"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-sitecms/internal/cache"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/revalidate"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

type recordingRegistry struct {
	handlers []any
}

func (r *recordingRegistry) RegisterCommand(handler any) error {
	r.handlers = append(r.handlers, handler)
	return nil
}

type stubPinger struct {
	calls int
	err   error
}

func (p *stubPinger) Ping(context.Context) error {
	p.calls++
	return p.err
}

type stubMarkdown struct {
	interfaces.MarkdownService
	directory string
	options   interfaces.ImportOptions
	result    *interfaces.ImportResult
}

func (s *stubMarkdown) ImportDirectory(_ context.Context, dir string, opts interfaces.ImportOptions) (*interfaces.ImportResult, error) {
	s.directory = dir
	s.options = opts
	return s.result, nil
}

func TestMessageValidation(t *testing.T) {
	cases := []struct {
		name    string
		msg     command.Message
		wantErr bool
	}{
		{"paths", RevalidatePathsCommand{Paths: []string{"/", "/nl"}}, false},
		{"all", RevalidatePathsCommand{All: true}, false},
		{"tags only", RevalidatePathsCommand{Tags: []string{revalidate.PagesSitemapTag}}, false},
		{"empty", RevalidatePathsCommand{}, true},
		{"relative path", RevalidatePathsCommand{Paths: []string{"about"}}, true},
		{"blank tag", RevalidatePathsCommand{Tags: []string{""}}, true},
		{"import", ImportMarkdownCommand{Directory: "content", Kind: "page"}, false},
		{"import without directory", ImportMarkdownCommand{Directory: "  "}, true},
		{"import unknown kind", ImportMarkdownCommand{Directory: "content", Kind: "widget"}, true},
		{"import unknown status", ImportMarkdownCommand{Directory: "content", Status: "archived"}, true},
		{"publish", PublishScheduledCommand{}, false},
		{"keep warm", KeepWarmCommand{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := command.ValidateMessage(tc.msg)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRevalidatePathsMarksRoutesAndDropsTags(t *testing.T) {
	ctx := context.Background()
	routes := revalidate.NewRouteCache()
	render := func(context.Context) (revalidate.Entry, error) {
		return revalidate.Entry{Status: 200, Body: []byte("ok")}, nil
	}
	for _, path := range []string{"/", "/nl"} {
		if _, _, err := routes.Serve(ctx, revalidate.RouteHome, path, render); err != nil {
			t.Fatalf("serve %s: %v", path, err)
		}
	}
	store := cache.NewMemoryStore()
	if err := store.Set(ctx, "sitemap", []byte("<urlset/>"), []string{revalidate.PagesSitemapTag}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	handler := NewRevalidatePathsHandler(routes, store, nil)
	err := handler.Execute(ctx, RevalidatePathsCommand{Paths: []string{"/"}, Tags: []string{revalidate.PagesSitemapTag}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if _, state, _ := routes.Serve(ctx, revalidate.RouteHome, "/", render); state != revalidate.StateStale {
		t.Fatalf("expected / to be stale, got %s", state)
	}
	if _, state, _ := routes.Serve(ctx, revalidate.RouteHome, "/nl", render); state != revalidate.StateFresh {
		t.Fatalf("expected /nl to stay fresh, got %s", state)
	}
	routes.Wait()
	if _, ok, _ := store.Get(ctx, "sitemap"); ok {
		t.Fatal("expected tagged entry to be dropped")
	}
}

func TestRevalidatePathsRejectsInvalidMessage(t *testing.T) {
	handler := NewRevalidatePathsHandler(revalidate.NewRouteCache(), nil, nil)
	err := handler.Execute(context.Background(), RevalidatePathsCommand{})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublishScheduledPublishesDueDrafts(t *testing.T) {
	ctx := context.Background()
	locales := i18n.MustNewRegistry(i18n.DefaultConfig())
	docs := documents.NewService(documents.NewMemoryRepository(), locales)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	later := now.Add(time.Hour)
	first, err := docs.Save(ctx, documents.SaveRequest{Kind: documents.KindBlogPost, Locale: "en", Title: "Due post", PublishAt: &due})
	if err != nil {
		t.Fatalf("save due: %v", err)
	}
	second, err := docs.Save(ctx, documents.SaveRequest{Kind: documents.KindBlogPost, Locale: "en", Title: "Later post", PublishAt: &later})
	if err != nil {
		t.Fatalf("save later: %v", err)
	}

	handler := NewPublishScheduledHandler(docs, func() time.Time { return now }, nil)
	if err := handler.Execute(ctx, PublishScheduledCommand{}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	got, err := docs.Get(ctx, documents.KindBlogPost, first.DocumentID, "en")
	if err != nil {
		t.Fatalf("get due: %v", err)
	}
	if !got.IsPublished() {
		t.Fatalf("expected due post to be published, got %s", got.Status)
	}
	got, err = docs.Get(ctx, documents.KindBlogPost, second.DocumentID, "en")
	if err != nil {
		t.Fatalf("get later: %v", err)
	}
	if got.IsPublished() {
		t.Fatal("expected later post to stay draft")
	}
}

func TestKeepWarmWrapsPingFailure(t *testing.T) {
	pinger := &stubPinger{err: errors.New("connection refused")}
	handler := NewKeepWarmHandler(pinger, nil)

	err := handler.Execute(context.Background(), KeepWarmCommand{})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category error, got %v", err)
	}
	if pinger.calls != 1 {
		t.Fatalf("expected one ping, got %d", pinger.calls)
	}
}

func TestImportMarkdownHandler(t *testing.T) {
	service := &stubMarkdown{result: &interfaces.ImportResult{}}
	handler := NewImportMarkdownHandler(service, nil)

	err := handler.Execute(context.Background(), ImportMarkdownCommand{Directory: "content", Kind: "page", DryRun: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.directory != "content" || service.options.Kind != "page" || !service.options.DryRun {
		t.Fatalf("unexpected call: %s %+v", service.directory, service.options)
	}

	disabled := NewImportMarkdownHandler(nil, nil)
	if err := disabled.Execute(context.Background(), ImportMarkdownCommand{Directory: "content"}); !errors.Is(err, ErrMarkdownDisabled) {
		t.Fatalf("expected ErrMarkdownDisabled, got %v", err)
	}
}

func TestRegisterSiteCommands(t *testing.T) {
	reg := &recordingRegistry{}
	locales := i18n.MustNewRegistry(i18n.DefaultConfig())
	docs := documents.NewService(documents.NewMemoryRepository(), locales)

	set, err := RegisterSiteCommands(reg, Dependencies{
		Routes:    revalidate.NewRouteCache(),
		Tags:      cache.NewMemoryStore(),
		Publisher: docs,
		Pinger:    docs,
	}, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(reg.handlers) != 4 {
		t.Fatalf("expected four handlers registered, got %d", len(reg.handlers))
	}
	if reg.handlers[0] != any(set.Revalidate) {
		t.Fatalf("expected revalidate handler first, got %T", reg.handlers[0])
	}

	if _, err := RegisterSiteCommands(nil, Dependencies{Pinger: docs}, nil); err == nil {
		t.Fatal("expected error without publisher")
	}
}

func TestRegisterCronRunsHandler(t *testing.T) {
	pinger := &stubPinger{}
	handler := NewKeepWarmHandler(pinger, nil)

	var (
		config command.HandlerConfig
		job    func() error
	)
	registrar := func(cfg command.HandlerConfig, fn any) error {
		config = cfg
		job = fn.(func() error)
		return nil
	}
	if err := RegisterCron[KeepWarmCommand](registrar, handler, command.HandlerConfig{Expression: "@every 5m"}, KeepWarmCommand{}); err != nil {
		t.Fatalf("register cron: %v", err)
	}
	if config.Expression != "@every 5m" {
		t.Fatalf("unexpected expression %q", config.Expression)
	}
	if err := job(); err != nil {
		t.Fatalf("job: %v", err)
	}
	if pinger.calls != 1 {
		t.Fatalf("expected one ping, got %d", pinger.calls)
	}
}
