package sitecmd

import (
	"context"
	"errors"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-sitecms/internal/commands"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// CommandRegistry is the registration contract used when wiring handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the go-command cron registration signature. The
// handler argument is a func() error.
type CronRegistrar func(command.HandlerConfig, any) error

// Dependencies are the services the site commands drive. Markdown may be nil.
type Dependencies struct {
	Routes    RouteRevalidator
	Tags      TagInvalidator
	Publisher Publisher
	Pinger    Pinger
	Markdown  interfaces.MarkdownService
	Clock     func() time.Time
}

// HandlerSet groups the handlers built by RegisterSiteCommands.
type HandlerSet struct {
	Revalidate *RevalidatePathsHandler
	Publish    *PublishScheduledHandler
	KeepWarm   *KeepWarmHandler
	Import     *ImportMarkdownHandler
}

type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout overrides the per-command timeout of every handler.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func RegisterSiteCommands(reg CommandRegistry, deps Dependencies, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if deps.Publisher == nil {
		return nil, errors.New("site command registration: publisher is nil")
	}
	if deps.Pinger == nil {
		return nil, errors.New("site command registration: pinger is nil")
	}
	cfg := options{timeout: commands.DefaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.Logger(provider, "site")
	set := &HandlerSet{
		Revalidate: NewRevalidatePathsHandler(deps.Routes, deps.Tags, logger,
			commands.WithTimeout[RevalidatePathsCommand](cfg.timeout)),
		Publish: NewPublishScheduledHandler(deps.Publisher, deps.Clock, logger,
			commands.WithTimeout[PublishScheduledCommand](cfg.timeout)),
		KeepWarm: NewKeepWarmHandler(deps.Pinger, logger,
			commands.WithTimeout[KeepWarmCommand](cfg.timeout)),
		Import: NewImportMarkdownHandler(deps.Markdown, logger,
			commands.WithTimeout[ImportMarkdownCommand](cfg.timeout)),
	}

	if reg != nil {
		for _, handler := range []any{set.Revalidate, set.Publish, set.KeepWarm, set.Import} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

// RegisterCron schedules handler to run msg on cfg.Expression with a
// background context.
func RegisterCron[T command.Message](reg CronRegistrar, handler command.Commander[T], cfg command.HandlerConfig, msg T) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(cfg, func() error {
		return handler.Execute(context.Background(), msg)
	})
}
