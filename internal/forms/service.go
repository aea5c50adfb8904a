package forms

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/validation"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

//go:embed schemas/form.json
var formSchemaDocument []byte

var formSchema = validation.MustCompile("form.json", formSchemaDocument)

// SaveRequest creates or replaces a form definition in one locale. A nil
// FormID creates a new form.
type SaveRequest struct {
	FormID      uuid.UUID
	Locale      string
	Title       string
	Description string
	Fields      []FieldDefinition
}

// Service manages form definitions.
type Service interface {
	Save(ctx context.Context, req SaveRequest) (*Form, error)
	Get(ctx context.Context, formID uuid.UUID, locale string) (*Form, error)
	List(ctx context.Context, locale string) ([]*Form, error)
}

type ServiceOption func(*service)

func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithServiceLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo    FormRepository
	locales *i18n.Registry
	now     func() time.Time
	logger  interfaces.Logger
}

func NewService(repo FormRepository, locales *i18n.Registry, opts ...ServiceOption) Service {
	s := &service{
		repo:    repo,
		locales: locales,
		now:     time.Now,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateDefinition checks a form against the embedded form schema.
func ValidateDefinition(form *Form) error {
	if form == nil {
		return ErrFormRequired
	}
	return validation.AsValidationError(formSchema.Validate(form), "invalid form definition", "FORM_INVALID")
}

func (s *service) Save(ctx context.Context, req SaveRequest) (*Form, error) {
	locale, err := s.locales.Resolve(req.Locale)
	if err != nil {
		return nil, goerrors.NewValidation("invalid form definition", goerrors.FieldError{
			Field:   "locale",
			Message: err.Error(),
			Value:   req.Locale,
		}).WithTextCode("FORM_INVALID")
	}

	record := &Form{
		FormID:      req.FormID,
		Locale:      locale,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Fields:      req.Fields,
	}
	if record.Fields == nil {
		record.Fields = []FieldDefinition{}
	}
	if err := ValidateDefinition(record); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record.UpdatedAt = now
	if record.FormID == uuid.Nil {
		record.FormID = uuid.New()
	} else {
		existing, err := s.repo.Find(ctx, record.FormID, locale)
		switch {
		case err == nil:
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			updated, err := s.repo.Update(ctx, record)
			if err != nil {
				return nil, err
			}
			s.logger.Info("form.updated", "form_id", updated.FormID, "locale", locale)
			return updated, nil
		case !errors.Is(err, ErrFormNotFound):
			return nil, err
		}
	}

	record.ID = uuid.New()
	record.CreatedAt = now
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("form.created", "form_id", created.FormID, "locale", locale)
	return created, nil
}

func (s *service) Get(ctx context.Context, formID uuid.UUID, locale string) (*Form, error) {
	form, err := s.repo.Find(ctx, formID, locale)
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return nil, formNotFound(formID, locale)
		}
		return nil, err
	}
	return form, nil
}

func (s *service) List(ctx context.Context, locale string) ([]*Form, error) {
	return s.repo.List(ctx, locale)
}
