package documents

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/identity"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/urls"
	sitevalidation "github.com/goliatone/go-sitecms/internal/validation"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// MaxVersions is the default number of snapshots retained per document and
// locale.
const MaxVersions = 30

// Hook observes persisted changes. Errors are logged and never fail the
// write that triggered them.
type Hook interface {
	AfterChange(ctx context.Context, doc *Document, previousURL string) error
	AfterDelete(ctx context.Context, doc *Document) error
}

// SaveRequest creates or updates one locale of a document. A nil DocumentID
// creates a new document; global kinds ignore it.
type SaveRequest struct {
	Kind       Kind
	DocumentID uuid.UUID
	Locale     string
	Title      string
	Slug       string
	URL        string
	Status     Status
	PublishAt  *time.Time
	Data       map[string]any
	Refs       []Reference
}

func (r SaveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.By(func(value any) error {
			_, err := ParseKind(string(value.(Kind)))
			return err
		})),
		validation.Field(&r.Title, validation.When(!r.Kind.IsGlobal(), validation.Required.Error(ErrTitleRequired.Error()))),
		validation.Field(&r.Status, validation.In(Status(""), StatusDraft, StatusPublished)),
	)
}

// StaticPath is one pre-renderable route.
type StaticPath struct {
	Locale string `json:"locale"`
	Slug   string `json:"slug,omitempty"`
	URL    string `json:"url"`
}

// Service manages localized documents and their URL invariants.
type Service interface {
	Save(ctx context.Context, req SaveRequest) (*Document, error)
	Delete(ctx context.Context, kind Kind, documentID uuid.UUID, locale string) error
	Publish(ctx context.Context, kind Kind, documentID uuid.UUID, locale string) (*Document, error)
	PublishDue(ctx context.Context, now time.Time) ([]*Document, error)
	Get(ctx context.Context, kind Kind, documentID uuid.UUID, locale string) (*Document, error)
	List(ctx context.Context, query Query) ([]*Document, error)
	Versions(ctx context.Context, documentID uuid.UUID, locale string) ([]*Version, error)
	StaticPaths(ctx context.Context, kind Kind) []StaticPath
	Ping(ctx context.Context) error
}

// ServiceOption configures the service at construction time.
type ServiceOption func(*service)

// WithClock overrides the clock used to stamp records.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

type IDGenerator func() uuid.UUID

func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithHooks appends change hooks.
func WithHooks(hooks ...Hook) ServiceOption {
	return func(s *service) {
		for _, hook := range hooks {
			if hook != nil {
				s.hooks = append(s.hooks, hook)
			}
		}
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxVersions sets the retained snapshot count. Zero keeps every version.
func WithMaxVersions(limit int) ServiceOption {
	return func(s *service) {
		if limit < 0 {
			limit = 0
		}
		s.maxVersions = limit
	}
}

// WithPageURLOptions declares how the page URL field treats blank input.
func WithPageURLOptions(opts urls.FieldOptions) ServiceOption {
	return func(s *service) {
		s.pageURL = opts
	}
}

type service struct {
	repo        Repository
	locales     *i18n.Registry
	normalizer  *urls.Normalizer
	validator   *urls.Validator
	hooks       []Hook
	logger      interfaces.Logger
	now         func() time.Time
	id          IDGenerator
	maxVersions int
	pageURL     urls.FieldOptions
}

func NewService(repo Repository, locales *i18n.Registry, opts ...ServiceOption) Service {
	s := &service{
		repo:        repo,
		locales:     locales,
		normalizer:  urls.NewNormalizer(locales),
		validator:   urls.NewValidator(locales),
		logger:      logging.NoOp(),
		now:         time.Now,
		id:          uuid.New,
		maxVersions: MaxVersions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Save(ctx context.Context, req SaveRequest) (*Document, error) {
	if err := req.Validate(); err != nil {
		return nil, sitevalidation.AsValidationError(err, "invalid document", "DOCUMENT_INVALID")
	}

	locale, err := s.locales.Resolve(req.Locale)
	if err != nil {
		var missing *i18n.LocaleNotFoundError
		if errors.As(err, &missing) {
			return nil, fieldError("locale", err.Error(), req.Locale)
		}
		return nil, err
	}

	documentID := req.DocumentID
	if req.Kind.IsGlobal() {
		documentID = identity.GlobalUUID(string(req.Kind))
	}

	var existing *Document
	if documentID != uuid.Nil {
		existing, err = s.findOne(ctx, Query{Kinds: []Kind{req.Kind}, Locale: locale, DocumentID: documentID})
		if err != nil {
			return nil, err
		}
	} else {
		documentID = s.id()
	}

	slug, url, err := s.deriveURL(req, locale)
	if err != nil {
		return nil, err
	}
	if url != "" {
		if err := s.ensureUnique(ctx, url, locale, documentID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	record := &Document{
		ID:         s.id(),
		DocumentID: documentID,
		Kind:       req.Kind,
		Locale:     locale,
		CreatedAt:  now,
	}
	previousURL := ""
	if existing != nil {
		record = existing
		previousURL = existing.URL
	}

	record.Title = strings.TrimSpace(req.Title)
	record.Slug = slug
	record.URL = url
	record.URLWithoutLocale = ""
	if url != "" {
		record.URLWithoutLocale = s.normalizer.WithoutLocale(url)
	}
	record.Status = req.Status
	if record.Status == "" {
		record.Status = StatusDraft
	}
	record.PublishAt = req.PublishAt
	if record.Status == StatusPublished {
		record.PublishAt = nil
		if record.PublishedAt == nil {
			stamp := now
			record.PublishedAt = &stamp
		}
	}
	record.Data = maps.Clone(req.Data)
	record.Refs = append([]Reference(nil), req.Refs...)
	record.Version++
	record.UpdatedAt = now

	var saved *Document
	if existing != nil {
		saved, err = s.repo.Update(ctx, record)
	} else {
		saved, err = s.repo.Create(ctx, record)
	}
	if err != nil {
		return nil, err
	}

	s.snapshot(ctx, saved)
	s.afterChange(ctx, saved, previousURL)
	return saved, nil
}

func (s *service) deriveURL(req SaveRequest, locale string) (string, string, error) {
	switch req.Kind {
	case KindPage:
		url := s.normalizer.Normalize(req.URL, req.Title, locale)
		if err := s.validator.Validate(url, locale, s.pageURL); err != nil {
			return "", "", err
		}
		return deriveSlug(req), url, nil
	case KindBlogPost:
		slug := deriveSlug(req)
		if slug == "" {
			return "", "", fieldError("slug", ErrSlugRequired.Error(), req.Slug)
		}
		url := s.normalizer.BlogPostURL(slug, locale)
		if err := s.validator.Validate(url, locale, urls.FieldOptions{}); err != nil {
			return "", "", err
		}
		return slug, url, nil
	case KindHome:
		return "", s.locales.HomePath(locale), nil
	case KindBlog, KindPrivacyPolicy, KindCookiePolicy, KindTermsAndConditions:
		return "", s.normalizer.SectionURL(string(req.Kind), locale), nil
	default:
		return "", "", nil
	}
}

// deriveSlug slugifies the supplied slug, falling back to the title when the
// slug is blank or has no usable characters.
func deriveSlug(req SaveRequest) string {
	if slug := urls.Slugify(req.Slug); slug != "" {
		return slug
	}
	return urls.Slugify(req.Title)
}

func (s *service) ensureUnique(ctx context.Context, url, locale string, documentID uuid.UUID) error {
	matches, err := s.repo.Find(ctx, Query{Locale: locale, URL: url})
	if err != nil {
		return err
	}
	for _, match := range matches {
		if match.DocumentID != documentID {
			return conflictError(&URLConflictError{URL: url, Locale: locale, ConflictID: match.DocumentID.String()})
		}
	}
	return nil
}

func (s *service) snapshot(ctx context.Context, doc *Document) {
	version := &Version{
		ID:         s.id(),
		DocumentID: doc.DocumentID,
		Locale:     doc.Locale,
		Version:    doc.Version,
		Snapshot:   snapshotOf(doc),
		CreatedAt:  doc.UpdatedAt,
	}
	logger := logging.WithDocumentContext(s.logger, string(doc.Kind), doc.Locale, doc.URL)
	if _, err := s.repo.CreateVersion(ctx, version); err != nil {
		logger.Warn("documents.version.create_failed", "error", err)
		return
	}
	if s.maxVersions > 0 {
		if err := s.repo.PruneVersions(ctx, doc.DocumentID, doc.Locale, s.maxVersions); err != nil {
			logger.Warn("documents.version.prune_failed", "error", err)
		}
	}
}

func (s *service) afterChange(ctx context.Context, doc *Document, previousURL string) {
	for _, hook := range s.hooks {
		if err := hook.AfterChange(ctx, doc, previousURL); err != nil {
			logging.WithDocumentContext(s.logger, string(doc.Kind), doc.Locale, doc.URL).
				Error("documents.hook.after_change_failed", "error", err)
		}
	}
}

func (s *service) Delete(ctx context.Context, kind Kind, documentID uuid.UUID, locale string) error {
	doc, err := s.Get(ctx, kind, documentID, locale)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		return err
	}
	for _, hook := range s.hooks {
		if err := hook.AfterDelete(ctx, doc); err != nil {
			logging.WithDocumentContext(s.logger, string(doc.Kind), doc.Locale, doc.URL).
				Error("documents.hook.after_delete_failed", "error", err)
		}
	}
	return nil
}

func (s *service) Publish(ctx context.Context, kind Kind, documentID uuid.UUID, locale string) (*Document, error) {
	doc, err := s.Get(ctx, kind, documentID, locale)
	if err != nil {
		return nil, err
	}
	if doc.IsPublished() {
		return doc, nil
	}
	return s.Save(ctx, requestFrom(doc, StatusPublished))
}

// PublishDue publishes every draft whose PublishAt is at or before now.
// Failures are logged per document so one bad row does not block the rest.
func (s *service) PublishDue(ctx context.Context, now time.Time) ([]*Document, error) {
	due := now.UTC()
	candidates, err := s.repo.Find(ctx, Query{Status: StatusDraft, DueBefore: &due})
	if err != nil {
		return nil, err
	}
	published := make([]*Document, 0, len(candidates))
	for _, doc := range candidates {
		saved, err := s.Save(ctx, requestFrom(doc, StatusPublished))
		if err != nil {
			logging.WithDocumentContext(s.logger, string(doc.Kind), doc.Locale, doc.URL).
				Warn("documents.publish_due.failed", "error", err)
			continue
		}
		published = append(published, saved)
	}
	return published, nil
}

func (s *service) Get(ctx context.Context, kind Kind, documentID uuid.UUID, locale string) (*Document, error) {
	resolved, err := s.locales.Resolve(locale)
	if err != nil {
		return nil, fieldError("locale", err.Error(), locale)
	}
	if kind.IsGlobal() {
		documentID = identity.GlobalUUID(string(kind))
	}
	doc, err := s.findOne(ctx, Query{Kinds: []Kind{kind}, Locale: resolved, DocumentID: documentID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFoundError(&NotFoundError{Kind: kind, Key: documentID.String(), Locale: resolved})
	}
	return doc, nil
}

func (s *service) List(ctx context.Context, query Query) ([]*Document, error) {
	return s.repo.Find(ctx, query)
}

func (s *service) Versions(ctx context.Context, documentID uuid.UUID, locale string) ([]*Version, error) {
	resolved, err := s.locales.Resolve(locale)
	if err != nil {
		return nil, fieldError("locale", err.Error(), locale)
	}
	return s.repo.ListVersions(ctx, documentID, resolved)
}

// StaticPaths enumerates published routes of kind in every locale. Lookup
// failures degrade to an empty list.
func (s *service) StaticPaths(ctx context.Context, kind Kind) []StaticPath {
	docs, err := s.repo.Find(ctx, Query{Kinds: []Kind{kind}, Status: StatusPublished})
	if err != nil {
		s.logger.Warn("documents.static_paths.failed", "kind", kind, "error", err)
		return []StaticPath{}
	}
	paths := make([]StaticPath, 0, len(docs))
	for _, doc := range docs {
		if doc.URL == "" {
			continue
		}
		paths = append(paths, StaticPath{Locale: doc.Locale, Slug: doc.Slug, URL: doc.URL})
	}
	return paths
}

func (s *service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *service) findOne(ctx context.Context, query Query) (*Document, error) {
	query.Limit = 1
	records, err := s.repo.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func requestFrom(doc *Document, status Status) SaveRequest {
	return SaveRequest{
		Kind:       doc.Kind,
		DocumentID: doc.DocumentID,
		Locale:     doc.Locale,
		Title:      doc.Title,
		Slug:       doc.Slug,
		URL:        doc.URL,
		Status:     status,
		PublishAt:  doc.PublishAt,
		Data:       doc.Data,
		Refs:       doc.Refs,
	}
}

func snapshotOf(doc *Document) map[string]any {
	refs := make([]any, 0, len(doc.Refs))
	for _, ref := range doc.Refs {
		refs = append(refs, map[string]any{
			"field":       ref.Field,
			"kind":        string(ref.Kind),
			"document_id": ref.DocumentID.String(),
		})
	}
	return map[string]any{
		"kind":   string(doc.Kind),
		"title":  doc.Title,
		"slug":   doc.Slug,
		"url":    doc.URL,
		"status": string(doc.Status),
		"data":   maps.Clone(doc.Data),
		"refs":   refs,
	}
}
