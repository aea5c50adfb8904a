package markdown

import (
	"cmp"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// Keys written into Document.Data by the importer.
const (
	DataContent  = "content"
	DataSource   = "source"
	DataChecksum = "checksum"
)

var (
	ErrDocumentsRequired = errors.New("markdown importer: documents service is required")
	ErrKeyMissing        = errors.New("markdown importer: file key could not be determined")
)

// Importer saves rendered Markdown files through documents.Service. Files
// sharing a Key become locales of one document; the default locale is saved
// first so its DocumentID is reused by the translations.
type Importer struct {
	docs    documents.Service
	locales *i18n.Registry
	logger  interfaces.Logger
}

func NewImporter(docs documents.Service, locales *i18n.Registry, logger interfaces.Logger) *Importer {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Importer{docs: docs, locales: locales, logger: logger}
}

// Import saves files. Per-file failures are collected in the result and
// joined into the returned error; the remaining files are still imported.
func (i *Importer) Import(ctx context.Context, files []*interfaces.MarkdownFile, opts interfaces.ImportOptions) (*interfaces.ImportResult, error) {
	if i.docs == nil {
		return nil, ErrDocumentsRequired
	}
	result := &interfaces.ImportResult{}
	groups := groupByKey(files)
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
		group := i.sortGroup(groups[key])
		if key == "" {
			for _, file := range group {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", file.Path, ErrKeyMissing))
			}
			continue
		}
		i.importGroup(ctx, key, group, opts, result)
	}
	return result, errors.Join(result.Errors...)
}

func (i *Importer) importGroup(ctx context.Context, key string, group []*interfaces.MarkdownFile, opts interfaces.ImportOptions, result *interfaces.ImportResult) {
	kind, err := kindFor(key, group[0], opts)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("%s: %w", group[0].Path, err))
		return
	}
	existing, err := i.existing(ctx, kind, key)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("markdown importer lookup %s: %w", key, err))
		return
	}

	var documentID uuid.UUID
	for _, doc := range existing {
		documentID = doc.DocumentID
		break
	}

	for _, file := range group {
		logger := logging.WithFields(i.logger, map[string]any{
			"path":   file.Path,
			"locale": file.Locale,
			"kind":   kind,
		})
		checksum := hex.EncodeToString(file.Checksum)
		current := existing[file.Locale]
		if current != nil && current.Data[DataChecksum] == checksum {
			result.Skipped = append(result.Skipped, current.DocumentID)
			logger.Debug("markdown.import.unchanged")
			continue
		}
		if opts.DryRun {
			result.Skipped = append(result.Skipped, documentID)
			logger.Info("markdown.import.dry_run", "exists", current != nil)
			continue
		}

		saved, err := i.docs.Save(ctx, i.request(kind, documentID, key, checksum, file, opts))
		if err != nil {
			logger.Warn("markdown.import.failed", "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", file.Path, err))
			continue
		}
		documentID = saved.DocumentID
		if current != nil {
			result.Updated = append(result.Updated, saved.DocumentID)
		} else {
			result.Created = append(result.Created, saved.DocumentID)
		}
		logger.Info("markdown.import.saved", "url", saved.URL, "version", saved.Version)
	}
}

func (i *Importer) request(kind documents.Kind, documentID uuid.UUID, key, checksum string, file *interfaces.MarkdownFile, opts interfaces.ImportOptions) documents.SaveRequest {
	meta := file.FrontMatter
	data := maps.Clone(meta.Custom)
	if data == nil {
		data = map[string]any{}
	}
	data[DataContent] = string(file.HTML)
	data[DataSource] = key
	data[DataChecksum] = checksum

	status := documents.Status(strings.ToLower(strings.TrimSpace(cmp.Or(meta.Status, opts.Status))))
	if meta.Draft {
		status = documents.StatusDraft
	}
	var publishAt *time.Time
	if !meta.PublishAt.IsZero() && status != documents.StatusPublished {
		stamp := meta.PublishAt.UTC()
		publishAt = &stamp
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = titleFromKey(key)
	}
	return documents.SaveRequest{
		Kind:       kind,
		DocumentID: documentID,
		Locale:     file.Locale,
		Title:      title,
		Slug:       meta.Slug,
		URL:        meta.URL,
		Status:     status,
		PublishAt:  publishAt,
		Data:       data,
	}
}

// existing maps locale to the document previously imported from key.
func (i *Importer) existing(ctx context.Context, kind documents.Kind, key string) (map[string]*documents.Document, error) {
	docs, err := i.docs.List(ctx, documents.Query{Kinds: []documents.Kind{kind}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*documents.Document)
	for _, doc := range docs {
		if source, _ := doc.Data[DataSource].(string); source == key {
			out[doc.Locale] = doc
		}
	}
	return out, nil
}

func (i *Importer) sortGroup(group []*interfaces.MarkdownFile) []*interfaces.MarkdownFile {
	out := slices.Clone(group)
	slices.SortFunc(out, func(a, b *interfaces.MarkdownFile) int {
		if i.locales != nil {
			if da, db := i.locales.IsDefault(a.Locale), i.locales.IsDefault(b.Locale); da != db {
				if da {
					return -1
				}
				return 1
			}
		}
		return cmp.Compare(a.Locale, b.Locale)
	})
	return out
}

// kindFor picks the frontmatter kind, then "blog/" keys as blog posts, then
// opts.Kind, then page.
func kindFor(key string, file *interfaces.MarkdownFile, opts interfaces.ImportOptions) (documents.Kind, error) {
	switch {
	case strings.TrimSpace(file.FrontMatter.Kind) != "":
		return documents.ParseKind(file.FrontMatter.Kind)
	case strings.HasPrefix(key, "blog/"):
		return documents.KindBlogPost, nil
	case strings.TrimSpace(opts.Kind) != "":
		return documents.ParseKind(opts.Kind)
	default:
		return documents.KindPage, nil
	}
}

func groupByKey(files []*interfaces.MarkdownFile) map[string][]*interfaces.MarkdownFile {
	out := make(map[string][]*interfaces.MarkdownFile)
	for _, file := range files {
		if file == nil {
			continue
		}
		key := strings.Trim(strings.TrimSpace(file.Key), "/")
		out[key] = append(out[key], file)
	}
	return out
}

func titleFromKey(key string) string {
	base := key
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	for idx, word := range words {
		words[idx] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
