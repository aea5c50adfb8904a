package validation

import (
	"errors"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// AsValidationError converts ozzo-validation and schema failures into a
// go-errors validation error so the HTTP layer can map them uniformly.
// Other errors are returned unchanged.
func AsValidationError(err error, message, textCode string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsValidation(err) {
		return err
	}

	var out *goerrors.Error
	var ozzoErrs ozzo.Errors
	var single ozzo.Error
	var payloadErr *PayloadError
	switch {
	case errors.As(err, &ozzoErrs), errors.As(err, &single):
		out = goerrors.FromOzzoValidation(err, message)
	case errors.As(err, &payloadErr):
		fields := make([]goerrors.FieldError, 0, len(payloadErr.Issues))
		for _, issue := range payloadErr.Issues {
			fields = append(fields, goerrors.FieldError{
				Field:   strings.TrimPrefix(issue.Location, "/"),
				Message: issue.Message,
			})
		}
		out = goerrors.NewValidation(message, fields...)
	default:
		return err
	}
	if textCode != "" {
		out = out.WithTextCode(textCode)
	}
	return out
}
