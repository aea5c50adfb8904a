package sitecmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-sitecms/internal/commands"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

const (
	revalidateOperation = "site.revalidate_paths"
	publishOperation    = "site.publish_scheduled"
	keepWarmOperation   = "site.keep_warm"
	importOperation     = "site.markdown_import"
)

// ErrMarkdownDisabled is returned when no Markdown service is configured.
var ErrMarkdownDisabled = errors.New("site command: markdown import disabled")

var (
	_ command.Commander[RevalidatePathsCommand]  = (*RevalidatePathsHandler)(nil)
	_ command.Commander[PublishScheduledCommand] = (*PublishScheduledHandler)(nil)
	_ command.Commander[KeepWarmCommand]         = (*KeepWarmHandler)(nil)
	_ command.Commander[ImportMarkdownCommand]   = (*ImportMarkdownHandler)(nil)
)

// RouteRevalidator is implemented by revalidate.RouteCache.
type RouteRevalidator interface {
	RevalidatePath(path string) bool
	RevalidateAll() int
}

// TagInvalidator is implemented by cache.Store.
type TagInvalidator interface {
	InvalidateTags(ctx context.Context, tags ...string) (int, error)
}

// Publisher is the part of documents.Service the scheduler drives.
type Publisher interface {
	PublishDue(ctx context.Context, now time.Time) ([]*documents.Document, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type RevalidatePathsHandler struct {
	inner *commands.Handler[RevalidatePathsCommand]
}

func NewRevalidatePathsHandler(routes RouteRevalidator, tags TagInvalidator, logger interfaces.Logger, opts ...commands.HandlerOption[RevalidatePathsCommand]) *RevalidatePathsHandler {
	logger = orNoOp(logger)
	exec := func(ctx context.Context, msg RevalidatePathsCommand) error {
		marked := 0
		if routes != nil {
			if msg.All {
				marked = routes.RevalidateAll()
			} else {
				for _, path := range msg.Paths {
					if routes.RevalidatePath(path) {
						marked++
					}
				}
			}
		}
		removed := 0
		if tags != nil && len(msg.Tags) > 0 {
			n, err := tags.InvalidateTags(ctx, msg.Tags...)
			if err != nil {
				return fmt.Errorf("invalidate tags: %w", err)
			}
			removed = n
		}
		logger.Info("site.command.revalidate.completed",
			"paths", msg.Paths,
			"all", msg.All,
			"marked", marked,
			"tags", msg.Tags,
			"removed", removed,
		)
		return nil
	}
	return &RevalidatePathsHandler{inner: newHandler(exec, logger, revalidateOperation, opts)}
}

func (h *RevalidatePathsHandler) Execute(ctx context.Context, msg RevalidatePathsCommand) error {
	return h.inner.Execute(ctx, msg)
}

type PublishScheduledHandler struct {
	inner *commands.Handler[PublishScheduledCommand]
}

func NewPublishScheduledHandler(publisher Publisher, now func() time.Time, logger interfaces.Logger, opts ...commands.HandlerOption[PublishScheduledCommand]) *PublishScheduledHandler {
	logger = orNoOp(logger)
	if now == nil {
		now = time.Now
	}
	exec := func(ctx context.Context, _ PublishScheduledCommand) error {
		published, err := publisher.PublishDue(ctx, now())
		if err != nil {
			return err
		}
		for _, doc := range published {
			logging.WithDocumentContext(logger, string(doc.Kind), doc.Locale, doc.URL).
				Info("site.command.publish_scheduled.published")
		}
		logger.Info("site.command.publish_scheduled.completed", "published", len(published))
		return nil
	}
	return &PublishScheduledHandler{inner: newHandler(exec, logger, publishOperation, opts)}
}

func (h *PublishScheduledHandler) Execute(ctx context.Context, msg PublishScheduledCommand) error {
	return h.inner.Execute(ctx, msg)
}

type KeepWarmHandler struct {
	inner *commands.Handler[KeepWarmCommand]
}

func NewKeepWarmHandler(pinger Pinger, logger interfaces.Logger, opts ...commands.HandlerOption[KeepWarmCommand]) *KeepWarmHandler {
	logger = orNoOp(logger)
	exec := func(ctx context.Context, _ KeepWarmCommand) error {
		return pinger.Ping(ctx)
	}
	return &KeepWarmHandler{inner: newHandler(exec, logger, keepWarmOperation, opts)}
}

func (h *KeepWarmHandler) Execute(ctx context.Context, msg KeepWarmCommand) error {
	return h.inner.Execute(ctx, msg)
}

type ImportMarkdownHandler struct {
	inner *commands.Handler[ImportMarkdownCommand]
}

// NewImportMarkdownHandler accepts a nil service; the handler then fails with
// ErrMarkdownDisabled.
func NewImportMarkdownHandler(service interfaces.MarkdownService, logger interfaces.Logger, opts ...commands.HandlerOption[ImportMarkdownCommand]) *ImportMarkdownHandler {
	logger = orNoOp(logger)
	exec := func(ctx context.Context, msg ImportMarkdownCommand) error {
		if service == nil {
			return ErrMarkdownDisabled
		}
		result, err := service.ImportDirectory(ctx, msg.Directory, interfaces.ImportOptions{
			Kind:   msg.Kind,
			Status: msg.Status,
			DryRun: msg.DryRun,
		})
		if result != nil {
			logging.WithFields(logger, map[string]any{
				"directory":     msg.Directory,
				"created_count": len(result.Created),
				"updated_count": len(result.Updated),
				"skipped_count": len(result.Skipped),
				"error_count":   len(result.Errors),
				"dry_run":       msg.DryRun,
			}).Info("site.command.markdown_import.completed")
		}
		return err
	}
	return &ImportMarkdownHandler{inner: newHandler(exec, logger, importOperation, opts)}
}

func (h *ImportMarkdownHandler) Execute(ctx context.Context, msg ImportMarkdownCommand) error {
	return h.inner.Execute(ctx, msg)
}

func newHandler[T command.Message](exec command.CommandFunc[T], logger interfaces.Logger, operation string, opts []commands.HandlerOption[T]) *commands.Handler[T] {
	base := []commands.HandlerOption[T]{
		commands.WithLogger[T](logger),
		commands.WithOperation[T](operation),
	}
	return commands.NewHandler(exec, append(base, opts...)...)
}

func orNoOp(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
