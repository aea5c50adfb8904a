package i18n

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrUnknownLocale        = errors.New("i18n: unknown locale")
	ErrNoLocales            = errors.New("i18n: at least one locale is required")
	ErrDefaultLocaleMissing = errors.New("i18n: default locale is required")
)

// LocaleNotFoundError reports a locale code outside the supported set.
type LocaleNotFoundError struct {
	Code string
}

func (e *LocaleNotFoundError) Error() string {
	return fmt.Sprintf("i18n: locale %q is not supported", e.Code)
}

func (e *LocaleNotFoundError) Unwrap() error {
	return ErrUnknownLocale
}

// AsNotFound converts the error into a go-errors not found error so HTTP
// handlers can map it without knowing about this package.
func (e *LocaleNotFoundError) AsNotFound() error {
	return goerrors.Wrap(e, goerrors.CategoryNotFound, e.Error()).
		WithTextCode("LOCALE_NOT_FOUND").
		WithMetadata(map[string]any{"locale": e.Code})
}
