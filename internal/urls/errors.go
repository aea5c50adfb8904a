package urls

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	fieldURL         = "url"
	textCodeInvalid  = "URL_INVALID"
	validationHeader = "invalid url"
)

const (
	msgEmpty        = "URL cannot be empty"
	msgRootReserved = "The root path / is reserved for the Home page"
	msgLeadingSlash = "URL must start with /"
	msgTrailing     = "URL must not end with /"
	msgConsecutive  = "URL must not contain consecutive slashes"
	msgCharset      = "URL must not contain invalid characters"
)

func validationError(value, message string) error {
	return goerrors.NewValidation(validationHeader, goerrors.FieldError{
		Field:   fieldURL,
		Message: message,
		Value:   value,
	}).WithTextCode(textCodeInvalid)
}

// Message extracts the first url field message from a validation error
// produced by this package. It returns "" for any other error.
func Message(err error) string {
	var target *goerrors.Error
	if !goerrors.As(err, &target) {
		return ""
	}
	for _, fieldErr := range target.ValidationErrors {
		if fieldErr.Field == fieldURL {
			return fieldErr.Message
		}
	}
	return ""
}
