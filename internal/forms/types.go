package forms

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FieldType is the author-selected type of a form field.
type FieldType string

const (
	FieldText          FieldType = "text"
	FieldTextarea      FieldType = "textarea"
	FieldEmail         FieldType = "email"
	FieldTel           FieldType = "tel"
	FieldNumber        FieldType = "number"
	FieldSelect        FieldType = "select"
	FieldCheckbox      FieldType = "checkbox"
	FieldRadio         FieldType = "radio"
	FieldDate          FieldType = "date"
	FieldTime          FieldType = "time"
	FieldDateTimeLocal FieldType = "datetime-local"
	FieldFile          FieldType = "file"
	FieldURL           FieldType = "url"
	FieldPassword      FieldType = "password"
	FieldHidden        FieldType = "hidden"
	FieldRange         FieldType = "range"
	FieldColor         FieldType = "color"
	FieldSearch        FieldType = "search"
)

const (
	DefaultMaxFiles = 5
	MinMaxFiles     = 1
	MaxMaxFiles     = 10
	DefaultMaxMB    = 25
	MinMaxMB        = 1
	MaxMaxMB        = 100
)

var inputTypes = []FieldType{
	FieldText, FieldTextarea, FieldEmail, FieldTel, FieldNumber, FieldDate, FieldTime,
	FieldDateTimeLocal, FieldURL, FieldPassword, FieldHidden, FieldRange, FieldColor, FieldSearch,
}

// CheckboxLink attaches a link to a checkbox label, e.g. a privacy notice.
type CheckboxLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// FieldDefinition is the stored shape of a form field. Attributes that do not
// apply to Type are ignored.
type FieldDefinition struct {
	Name         string        `json:"name"`
	Type         FieldType     `json:"type"`
	Label        string        `json:"label,omitempty"`
	Required     bool          `json:"required,omitempty"`
	Options      []string      `json:"options,omitempty"`
	MultiSelect  bool          `json:"multiSelect,omitempty"`
	MaxNumFiles  int           `json:"maxNumFiles,omitempty"`
	MaxMBs       int           `json:"maxMBs,omitempty"`
	CheckboxLink *CheckboxLink `json:"checkboxLink,omitempty"`
}

// Field is the typed view of a definition. Validation dispatches on the
// concrete variant.
type Field interface {
	FieldName() string
	IsRequired() bool
}

type fieldBase struct {
	Name     string
	Required bool
}

func (f fieldBase) FieldName() string { return f.Name }
func (f fieldBase) IsRequired() bool  { return f.Required }

type InputField struct {
	fieldBase
	Type FieldType
}

type SelectField struct {
	fieldBase
	Options []string
	Multi   bool
}

type CheckboxField struct {
	fieldBase
	Link *CheckboxLink
}

type RadioField struct {
	fieldBase
	Options []string
}

type FileField struct {
	fieldBase
	MaxFiles int
	MaxMB    int
}

// MaxBytes is the per-file and per-field byte ceiling.
func (f FileField) MaxBytes() int64 {
	return int64(f.MaxMB) * 1024 * 1024
}

// Variant returns the typed field, or nil when the definition has no name or
// an unknown type. Such fields are not part of the submission schema.
func (d FieldDefinition) Variant() Field {
	if d.Name == "" {
		return nil
	}
	base := fieldBase{Name: d.Name, Required: d.Required}
	switch d.Type {
	case FieldSelect:
		return SelectField{fieldBase: base, Options: d.Options, Multi: d.MultiSelect}
	case FieldCheckbox:
		return CheckboxField{fieldBase: base, Link: d.CheckboxLink}
	case FieldRadio:
		return RadioField{fieldBase: base, Options: d.Options}
	case FieldFile:
		return FileField{
			fieldBase: base,
			MaxFiles:  clamp(d.MaxNumFiles, DefaultMaxFiles, MinMaxFiles, MaxMaxFiles),
			MaxMB:     clamp(d.MaxMBs, DefaultMaxMB, MinMaxMB, MaxMaxMB),
		}
	}
	if slices.Contains(inputTypes, d.Type) {
		return InputField{fieldBase: base, Type: d.Type}
	}
	return nil
}

func clamp(value, fallback, lower, upper int) int {
	if value == 0 {
		return fallback
	}
	return max(lower, min(value, upper))
}

// Form is a content-author-defined form in one locale.
type Form struct {
	bun.BaseModel `bun:"table:forms,alias:f"`

	ID          uuid.UUID         `bun:",pk,type:uuid" json:"id"`
	FormID      uuid.UUID         `bun:"form_id,notnull,type:uuid" json:"form_id"`
	Locale      string            `bun:"locale,notnull" json:"locale"`
	Title       string            `bun:"title,notnull" json:"title"`
	Description string            `bun:"description" json:"description,omitempty"`
	Fields      []FieldDefinition `bun:"fields,type:jsonb" json:"fields"`
	CreatedAt   time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time         `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Schema returns the typed fields keyed by name. Unnamed and untyped fields
// are skipped.
func (f *Form) Schema() map[string]Field {
	out := make(map[string]Field, len(f.Fields))
	for _, def := range f.Fields {
		if field := def.Variant(); field != nil {
			out[field.FieldName()] = field
		}
	}
	return out
}

// FieldValue is one submitted field. Value keeps the decoded JSON type so
// non-string values can be rejected.
type FieldValue struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Upload groups the media identifiers stored for one file field.
type Upload struct {
	Field string      `json:"field"`
	Files []uuid.UUID `json:"files"`
}

// Submission is an accepted form submission.
type Submission struct {
	bun.BaseModel `bun:"table:form_submissions,alias:fs"`

	ID             uuid.UUID    `bun:",pk,type:uuid" json:"id"`
	FormID         uuid.UUID    `bun:"form_id,notnull,type:uuid" json:"form"`
	Locale         string       `bun:"locale,notnull" json:"locale"`
	SubmissionData []FieldValue `bun:"submission_data,type:jsonb" json:"submissionData"`
	Uploads        []Upload     `bun:"uploads,type:jsonb" json:"uploads,omitempty"`
	SubmittedAt    time.Time    `bun:"submitted_at,notnull" json:"submittedAt"`
}
