package forms

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// State is where a submission ended up.
type State string

const (
	StateAccepted    State = "accepted"
	StateRateLimited State = "rate_limited"
	StateRejected    State = "rejected"
)

// StateOf classifies the error returned by Pipeline.Submit.
func StateOf(err error) State {
	switch {
	case err == nil:
		return StateAccepted
	case goerrors.IsCategory(err, goerrors.CategoryRateLimit):
		return StateRateLimited
	default:
		return StateRejected
	}
}

func rejected(format string, args ...any) error {
	return goerrors.NewValidation(fmt.Sprintf(format, args...)).
		WithTextCode("SUBMISSION_INVALID")
}

func badRequest(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode("SUBMISSION_BAD_REQUEST")
}

func formNotFound(formID uuid.UUID, locale string) error {
	return goerrors.Wrap(ErrFormNotFound, goerrors.CategoryNotFound, "Form not found").
		WithTextCode("FORM_NOT_FOUND").
		WithMetadata(map[string]any{"form_id": formID.String(), "locale": locale})
}

// failed always reports an internal error, whatever category the cause has.
func failed(err error, format string, args ...any) error {
	out := goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryInternal).
		WithTextCode("SUBMISSION_FAILED")
	out.Source = err
	return out
}
