package validation

import (
	"errors"
	"testing"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

const personSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "age": {"type": "integer", "minimum": 0}
  },
  "required": ["name"],
  "additionalProperties": false
}`

func TestSchemaValidate(t *testing.T) {
	schema := MustCompile("person.json", []byte(personSchema))

	if err := schema.Validate(map[string]any{"name": "Ada", "age": 36}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	err := schema.Validate(map[string]any{"age": -1, "extra": true})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	if len(Issues(err)) == 0 {
		t.Fatal("expected issues to be collected")
	}
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	if _, err := Compile("broken.json", []byte(`{"type": 12}`)); !errors.Is(err, ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}

func TestAsValidationError(t *testing.T) {
	type request struct {
		Title string
		Kind  string
	}
	req := request{}
	err := ozzo.ValidateStruct(&req,
		ozzo.Field(&req.Title, ozzo.Required),
		ozzo.Field(&req.Kind, ozzo.Required),
	)
	converted := AsValidationError(err, "invalid request", "REQUEST_INVALID")
	if !goerrors.IsValidation(converted) {
		t.Fatalf("expected validation category, got %v", converted)
	}
	var typed *goerrors.Error
	if !goerrors.As(converted, &typed) {
		t.Fatal("expected *goerrors.Error")
	}
	if len(typed.ValidationErrors) != 2 {
		t.Fatalf("expected two field errors, got %d", len(typed.ValidationErrors))
	}
	if typed.TextCode != "REQUEST_INVALID" {
		t.Fatalf("unexpected text code %q", typed.TextCode)
	}

	plain := errors.New("boom")
	if AsValidationError(plain, "x", "") != plain {
		t.Fatal("expected unrelated errors to pass through")
	}
}
