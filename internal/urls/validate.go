package urls

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-sitecms/internal/i18n"
)

var urlPattern = regexp.MustCompile(`^/[a-zA-Z0-9/\-_]*$`)

// FieldOptions are declared per URL field. Blank handling is never implied:
// a field either allows blank values or it does not.
type FieldOptions struct {
	AllowBlank bool
}

// Validator checks author-entered URLs against the locale rules of a registry.
type Validator struct {
	locales *i18n.Registry
}

func NewValidator(locales *i18n.Registry) *Validator {
	return &Validator{locales: locales}
}

// Validate applies the URL rules in order and returns the first failure as a
// go-errors validation error on the "url" field.
func (v *Validator) Validate(value, locale string, opts FieldOptions) error {
	if opts.AllowBlank && strings.TrimSpace(value) == "" {
		return nil
	}

	editing := locale
	if resolved, err := v.locales.Resolve(locale); err == nil {
		editing = resolved
	}

	err := validation.Validate(value,
		validation.By(rule(func(s string) bool { return strings.TrimSpace(s) != "" }, msgEmpty)),
		validation.By(rule(func(s string) bool { return s != "/" }, msgRootReserved)),
		validation.By(rule(func(s string) bool { return strings.HasPrefix(s, "/") }, msgLeadingSlash)),
		validation.By(rule(func(s string) bool { return !strings.HasSuffix(s, "/") }, msgTrailing)),
		validation.By(rule(func(s string) bool {
			return !strings.Contains(s, "//") || strings.HasPrefix(s, "//")
		}, msgConsecutive)),
		validation.Match(urlPattern).Error(msgCharset),
		validation.By(func(raw any) error {
			return v.checkLocalePrefix(raw.(string), editing)
		}),
	)
	if err != nil {
		return validationError(value, err.Error())
	}
	return nil
}

func (v *Validator) checkLocalePrefix(value, editing string) error {
	def := v.locales.Default()
	for _, loc := range v.locales.Codes() {
		if value != "/"+loc && !strings.HasPrefix(value, "/"+loc+"/") {
			continue
		}
		if editing == def {
			return fmt.Errorf("URL must not start with /%s when the locale is %s", loc, def)
		}
		if editing != loc {
			return fmt.Errorf("URL cannot start with /%s when the locale is %s", loc, editing)
		}
		if value == "/"+loc {
			return fmt.Errorf("The path /%s is reserved for the Home page", loc)
		}
		return nil
	}
	if editing == def {
		return nil
	}
	return fmt.Errorf("URL must start with /%s when locale is %s", editing, editing)
}

func rule(ok func(string) bool, message string) validation.RuleFunc {
	return func(raw any) error {
		s, _ := raw.(string)
		if ok(s) {
			return nil
		}
		return validation.NewError("validation_url", message)
	}
}
