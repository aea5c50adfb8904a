package documents

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrUnknownKind      = errors.New("documents: unknown kind")
	ErrURLExists        = errors.New("documents: url already exists for locale")
	ErrSlugRequired     = errors.New("documents: slug is required")
	ErrTitleRequired    = errors.New("documents: title is required")
	ErrDocumentRequired = errors.New("documents: document id required")
	ErrNotFound         = errors.New("documents: document not found")
)

// NotFoundError reports a missing document for a kind and locale.
type NotFoundError struct {
	Kind   Kind
	Key    string
	Locale string
}

func (e *NotFoundError) Error() string {
	if e.Locale == "" {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
	}
	return fmt.Sprintf("%s %q not found in locale %s", e.Kind, e.Key, e.Locale)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// URLConflictError reports a URL already taken by another document in the
// same locale.
type URLConflictError struct {
	URL        string
	Locale     string
	ConflictID string
}

func (e *URLConflictError) Error() string {
	return fmt.Sprintf("documents: url %q already used in locale %s by %s", e.URL, e.Locale, e.ConflictID)
}

func (e *URLConflictError) Unwrap() error {
	return ErrURLExists
}

func conflictError(err *URLConflictError) error {
	return goerrors.Wrap(err, goerrors.CategoryConflict, "url already exists").
		WithTextCode("URL_EXISTS").
		WithMetadata(map[string]any{"url": err.URL, "locale": err.Locale})
}

func fieldError(field, message string, value any) error {
	return goerrors.NewValidation("invalid document", goerrors.FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	}).WithTextCode("DOCUMENT_INVALID")
}

func notFoundError(err *NotFoundError) error {
	return goerrors.Wrap(err, goerrors.CategoryNotFound, err.Error()).
		WithTextCode("DOCUMENT_NOT_FOUND")
}
