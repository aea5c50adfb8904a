package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MarkdownParser converts raw Markdown bytes into HTML.
type MarkdownParser interface {
	Parse(markdown []byte) ([]byte, error)
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions customises Markdown rendering. Names stay readable for config
// unmarshalling and CLI flags.
type ParseOptions struct {
	Extensions []string `mapstructure:"extensions" json:"extensions,omitempty"`
	HardWraps  bool     `mapstructure:"hard_wraps" json:"hard_wraps,omitempty"`
	SafeMode   bool     `mapstructure:"safe_mode" json:"safe_mode,omitempty"`
}

// MarkdownService loads Markdown files from disk, renders them and imports
// them as site documents.
type MarkdownService interface {
	Load(ctx context.Context, path string, opts LoadOptions) (*MarkdownFile, error)
	LoadDirectory(ctx context.Context, dir string, opts LoadOptions) ([]*MarkdownFile, error)
	Render(ctx context.Context, markdown []byte, opts ParseOptions) ([]byte, error)
	ImportDirectory(ctx context.Context, dir string, opts ImportOptions) (*ImportResult, error)
}

// MarkdownFile is one Markdown source file with parsed metadata.
type MarkdownFile struct {
	// Path is slash separated and relative to the loader root.
	Path         string
	Locale       string
	Key          string
	FrontMatter  FrontMatter
	Body         []byte
	HTML         []byte
	LastModified time.Time
	// Checksum is the SHA-256 of the raw file so repeated imports can skip
	// unchanged files.
	Checksum []byte
}

// FrontMatter is the metadata block of an imported file. Unknown keys land in
// Custom and are copied into the document data.
type FrontMatter struct {
	Title     string         `yaml:"title" json:"title"`
	Slug      string         `yaml:"slug" json:"slug,omitempty"`
	URL       string         `yaml:"url" json:"url,omitempty"`
	Kind      string         `yaml:"kind" json:"kind,omitempty"`
	Status    string         `yaml:"status" json:"status,omitempty"`
	Key       string         `yaml:"key" json:"key,omitempty"`
	PublishAt time.Time      `yaml:"publish_at" json:"publish_at,omitempty"`
	Draft     bool           `yaml:"draft" json:"draft,omitempty"`
	Custom    map[string]any `yaml:",inline" json:"custom,omitempty"`
}

// LoadOptions fine-tunes discovery.
type LoadOptions struct {
	Recursive *bool
	Pattern   string
	Parser    ParseOptions
}

// ImportOptions controls how Markdown files become documents. Kind applies
// when neither the frontmatter nor the file location names one; Status applies
// when the frontmatter leaves it blank.
type ImportOptions struct {
	Kind   string
	Status string
	DryRun bool
	Load   LoadOptions
}

// ImportResult reports document IDs touched by an import run.
type ImportResult struct {
	Created []uuid.UUID
	Updated []uuid.UUID
	Skipped []uuid.UUID
	Errors  []error
}
