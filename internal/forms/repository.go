package forms

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrFormNotFound = errors.New("forms: form not found")
	ErrFormRequired = errors.New("forms: form required")
)

// FormRepository persists form definitions, one row per form and locale.
type FormRepository interface {
	Create(ctx context.Context, form *Form) (*Form, error)
	Update(ctx context.Context, form *Form) (*Form, error)
	Find(ctx context.Context, formID uuid.UUID, locale string) (*Form, error)
	List(ctx context.Context, locale string) ([]*Form, error)
}

// SubmissionRepository persists accepted submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *Submission) (*Submission, error)
	ListByForm(ctx context.Context, formID uuid.UUID) ([]*Submission, error)
}

// MemoryFormRepository keeps forms in process.
type MemoryFormRepository struct {
	mu    sync.RWMutex
	forms map[uuid.UUID]*Form
}

func NewMemoryFormRepository() *MemoryFormRepository {
	return &MemoryFormRepository{forms: make(map[uuid.UUID]*Form)}
}

func (m *MemoryFormRepository) Create(_ context.Context, form *Form) (*Form, error) {
	if form == nil {
		return nil, ErrFormRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := cloneForm(form)
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	m.forms[cloned.ID] = cloned
	return cloneForm(cloned), nil
}

func (m *MemoryFormRepository) Update(_ context.Context, form *Form) (*Form, error) {
	if form == nil {
		return nil, ErrFormRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.forms[form.ID]; !ok {
		return nil, ErrFormNotFound
	}
	cloned := cloneForm(form)
	m.forms[cloned.ID] = cloned
	return cloneForm(cloned), nil
}

func (m *MemoryFormRepository) Find(_ context.Context, formID uuid.UUID, locale string) (*Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, form := range m.forms {
		if form.FormID == formID && form.Locale == locale {
			return cloneForm(form), nil
		}
	}
	return nil, ErrFormNotFound
}

func (m *MemoryFormRepository) List(_ context.Context, locale string) ([]*Form, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Form, 0, len(m.forms))
	for _, form := range m.forms {
		if locale == "" || form.Locale == locale {
			out = append(out, cloneForm(form))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func cloneForm(form *Form) *Form {
	cloned := *form
	cloned.Fields = make([]FieldDefinition, len(form.Fields))
	for i, def := range form.Fields {
		def.Options = slices.Clone(def.Options)
		if def.CheckboxLink != nil {
			link := *def.CheckboxLink
			def.CheckboxLink = &link
		}
		cloned.Fields[i] = def
	}
	return &cloned
}

// MemorySubmissionRepository keeps submissions in process.
type MemorySubmissionRepository struct {
	mu          sync.RWMutex
	submissions []*Submission
}

func NewMemorySubmissionRepository() *MemorySubmissionRepository {
	return &MemorySubmissionRepository{}
}

func (m *MemorySubmissionRepository) Create(_ context.Context, submission *Submission) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := *submission
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	m.submissions = append(m.submissions, &cloned)
	out := cloned
	return &out, nil
}

func (m *MemorySubmissionRepository) ListByForm(_ context.Context, formID uuid.UUID) ([]*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Submission
	for _, submission := range m.submissions {
		if submission.FormID == formID {
			cloned := *submission
			out = append(out, &cloned)
		}
	}
	return out, nil
}

// Len reports how many submissions are stored.
func (m *MemorySubmissionRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.submissions)
}

func NewFormRecordRepository(db *bun.DB) repository.Repository[*Form] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Form]{
		NewRecord: func() *Form { return &Form{} },
		GetID: func(f *Form) uuid.UUID {
			return f.ID
		},
		SetID: func(f *Form, id uuid.UUID) {
			f.ID = id
		},
		GetIdentifier: func() string {
			return "title"
		},
		GetIdentifierValue: func(f *Form) string {
			return f.Title
		},
	})
}

func NewSubmissionRecordRepository(db *bun.DB) repository.Repository[*Submission] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Submission]{
		NewRecord: func() *Submission { return &Submission{} },
		GetID: func(s *Submission) uuid.UUID {
			return s.ID
		},
		SetID: func(s *Submission, id uuid.UUID) {
			s.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(s *Submission) string {
			return s.ID.String()
		},
	})
}

// BunFormRepository stores forms in the forms table.
type BunFormRepository struct {
	repo repository.Repository[*Form]
}

func NewBunFormRepository(db *bun.DB) *BunFormRepository {
	return &BunFormRepository{repo: NewFormRecordRepository(db)}
}

func (r *BunFormRepository) Create(ctx context.Context, form *Form) (*Form, error) {
	created, err := r.repo.Create(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("form repository create: %w", err)
	}
	return created, nil
}

func (r *BunFormRepository) Update(ctx context.Context, form *Form) (*Form, error) {
	updated, err := r.repo.Update(ctx, form,
		repository.UpdateByID(form.ID.String()),
		repository.UpdateColumns("title", "description", "fields", "updated_at"),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "form repository update")
	}
	return updated, nil
}

func (r *BunFormRepository) Find(ctx context.Context, formID uuid.UUID, locale string) (*Form, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.form_id = ?", formID).
				Where("?TableAlias.locale = ?", locale).
				Limit(1)
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "form repository find")
	}
	if len(records) == 0 {
		return nil, ErrFormNotFound
	}
	return records[0], nil
}

func (r *BunFormRepository) List(ctx context.Context, locale string) ([]*Form, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			if locale != "" {
				q = q.Where("?TableAlias.locale = ?", locale)
			}
			return q.OrderExpr("?TableAlias.title ASC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "form repository list")
	}
	return records, nil
}

// BunSubmissionRepository stores submissions in the form_submissions table.
type BunSubmissionRepository struct {
	repo repository.Repository[*Submission]
}

func NewBunSubmissionRepository(db *bun.DB) *BunSubmissionRepository {
	return &BunSubmissionRepository{repo: NewSubmissionRecordRepository(db)}
}

func (r *BunSubmissionRepository) Create(ctx context.Context, submission *Submission) (*Submission, error) {
	created, err := r.repo.Create(ctx, submission)
	if err != nil {
		return nil, fmt.Errorf("submission repository create: %w", err)
	}
	return created, nil
}

func (r *BunSubmissionRepository) ListByForm(ctx context.Context, formID uuid.UUID) ([]*Submission, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.form_id = ?", formID).
				OrderExpr("?TableAlias.submitted_at ASC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "submission repository list")
	}
	return records, nil
}

func mapRepositoryError(err error, op string) error {
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return ErrFormNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
