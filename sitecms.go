// Package sitecms runs a bilingual marketing site: localized documents,
// cached route rendering with on-demand revalidation, form submissions,
// media uploads, a sitemap and scheduled publishing.
package sitecms

import (
	"context"
	"net/http"

	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
	"github.com/goliatone/go-sitecms/internal/di"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/forms"
	"github.com/goliatone/go-sitecms/internal/media"
	"github.com/goliatone/go-sitecms/internal/scheduler"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// DocumentService exports the document service contract.
type DocumentService = documents.Service

type (
	Document            = documents.Document
	DocumentKind        = documents.Kind
	DocumentQuery       = documents.Query
	DocumentSaveRequest = documents.SaveRequest
)

// FormService exports the form definition service contract.
type FormService = forms.Service

type FormSaveRequest = forms.SaveRequest

// MediaStore exports the media store contract.
type MediaStore = media.Store

// CommandSet exports the site command handlers.
type CommandSet = sitecmd.HandlerSet

// Module is the top level site runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a site module from cfg and optional DI overrides.
func New(ctx context.Context, cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

func (m *Module) Documents() DocumentService {
	return m.container.DocumentService()
}

func (m *Module) Forms() FormService {
	return m.container.FormService()
}

func (m *Module) Media() MediaStore {
	return m.container.MediaStore()
}

// Markdown returns the markdown service, nil unless markdown.enabled is set.
func (m *Module) Markdown() interfaces.MarkdownService {
	if svc := m.container.MarkdownService(); svc != nil {
		return svc
	}
	return nil
}

// Commands returns the revalidate, publish, keep-warm and import handlers.
func (m *Module) Commands() *CommandSet {
	return m.container.Commands()
}

// Scheduler returns the cron scheduler, nil when disabled.
func (m *Module) Scheduler() *scheduler.Scheduler {
	return m.container.Scheduler()
}

// Handler returns the site HTTP handler with rewrites and host redirects
// applied.
func (m *Module) Handler() http.Handler {
	return m.container.SiteAPI().Handler()
}

// Close releases the scheduler, dispatcher subscriptions and connections.
func (m *Module) Close(ctx context.Context) error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close(ctx)
}
