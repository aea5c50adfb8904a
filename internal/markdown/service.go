package markdown

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// Config controls discovery and rendering.
type Config struct {
	BasePath  string
	Pattern   string
	Recursive bool
	Parser    interfaces.ParseOptions
	// FS replaces os.DirFS(BasePath) when set.
	FS fs.FS
}

// Service implements interfaces.MarkdownService over a directory tree.
type Service struct {
	cfg      Config
	parser   interfaces.MarkdownParser
	loader   *Loader
	importer *Importer
	logger   interfaces.Logger
}

var _ interfaces.MarkdownService = (*Service)(nil)

type ServiceOption func(*Service)

// WithParser replaces the goldmark parser.
func WithParser(parser interfaces.MarkdownParser) ServiceOption {
	return func(s *Service) {
		if parser != nil {
			s.parser = parser
		}
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(cfg Config, docs documents.Service, locales *i18n.Registry, opts ...ServiceOption) (*Service, error) {
	filesystem := cfg.FS
	if filesystem == nil {
		base := strings.TrimSpace(cfg.BasePath)
		if base == "" {
			base = "."
		}
		if _, err := os.Stat(base); err != nil {
			return nil, fmt.Errorf("markdown service: stat base path %s: %w", base, err)
		}
		filesystem = os.DirFS(base)
	}

	s := &Service{cfg: cfg, logger: logging.NoOp()}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = NewGoldmarkParser(cfg.Parser)
	}
	s.loader = NewLoader(filesystem, LoaderConfig{
		DefaultLocale: locales.Default(),
		Locales:       locales.Codes(),
		Pattern:       cfg.Pattern,
		Recursive:     cfg.Recursive,
	})
	s.importer = NewImporter(docs, locales, s.logger)
	return s, nil
}

func (s *Service) Load(ctx context.Context, path string, opts interfaces.LoadOptions) (*interfaces.MarkdownFile, error) {
	file, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.render(ctx, file, opts.Parser); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *Service) LoadDirectory(ctx context.Context, dir string, opts interfaces.LoadOptions) ([]*interfaces.MarkdownFile, error) {
	files, err := s.loader.LoadDirectory(ctx, dir, opts)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if err := s.render(ctx, file, opts.Parser); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (s *Service) Render(ctx context.Context, markdown []byte, opts interfaces.ParseOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.parser.ParseWithOptions(markdown, opts)
}

// ImportDirectory loads, renders and saves every file under dir.
func (s *Service) ImportDirectory(ctx context.Context, dir string, opts interfaces.ImportOptions) (*interfaces.ImportResult, error) {
	files, err := s.LoadDirectory(ctx, dir, opts.Load)
	if err != nil {
		return nil, err
	}
	result, err := s.importer.Import(ctx, files, opts)
	if result != nil {
		s.logger.Info("markdown.import.completed",
			"directory", dir,
			"files", len(files),
			"created", len(result.Created),
			"updated", len(result.Updated),
			"skipped", len(result.Skipped),
			"errors", len(result.Errors),
			"dry_run", opts.DryRun,
		)
	}
	return result, err
}

func (s *Service) render(ctx context.Context, file *interfaces.MarkdownFile, opts interfaces.ParseOptions) error {
	html, err := s.Render(ctx, file.Body, opts)
	if err != nil {
		return fmt.Errorf("markdown render %s: %w", file.Path, err)
	}
	file.HTML = html
	return nil
}
