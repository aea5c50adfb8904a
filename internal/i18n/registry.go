package i18n

import (
	"slices"
	"strings"
)

// Registry is the closed set of supported locales. The default locale is
// served without a path prefix, every other locale under /{code}.
type Registry struct {
	defaultLocale string
	locales       []string
}

// NewRegistry normalizes cfg and builds a registry. The default locale is
// always the first entry of Codes.
func NewRegistry(cfg Config) (*Registry, error) {
	def := normalizeCode(cfg.DefaultLocale)
	if def == "" {
		if len(cfg.Locales) == 0 {
			return nil, ErrNoLocales
		}
		return nil, ErrDefaultLocaleMissing
	}

	locales := []string{def}
	for _, code := range cfg.Locales {
		code = normalizeCode(code)
		if code == "" || slices.Contains(locales, code) {
			continue
		}
		locales = append(locales, code)
	}

	return &Registry{defaultLocale: def, locales: locales}, nil
}

// MustNewRegistry panics when cfg is invalid. Intended for tests and wiring
// of compile-time locale sets.
func MustNewRegistry(cfg Config) *Registry {
	registry, err := NewRegistry(cfg)
	if err != nil {
		panic(err)
	}
	return registry
}

func (r *Registry) Default() string {
	return r.defaultLocale
}

// Codes returns every supported locale, default first.
func (r *Registry) Codes() []string {
	return slices.Clone(r.locales)
}

// NonDefault returns the locales that carry a path prefix.
func (r *Registry) NonDefault() []string {
	return slices.Clone(r.locales[1:])
}

func (r *Registry) IsSupported(code string) bool {
	return slices.Contains(r.locales, normalizeCode(code))
}

func (r *Registry) IsDefault(code string) bool {
	return normalizeCode(code) == r.defaultLocale
}

// Resolve maps a requested locale to a supported code. Blank input selects
// the default locale.
func (r *Registry) Resolve(code string) (string, error) {
	normalized := normalizeCode(code)
	if normalized == "" {
		return r.defaultLocale, nil
	}
	if !slices.Contains(r.locales, normalized) {
		return "", &LocaleNotFoundError{Code: strings.TrimSpace(code)}
	}
	return normalized, nil
}

// Prefix returns the path prefix for locale, empty for the default locale.
func (r *Registry) Prefix(locale string) string {
	locale = normalizeCode(locale)
	if locale == "" || locale == r.defaultLocale {
		return ""
	}
	return "/" + locale
}

// HomePath returns the path reserved for the home document of locale.
func (r *Registry) HomePath(locale string) string {
	if prefix := r.Prefix(locale); prefix != "" {
		return prefix
	}
	return "/"
}

// HomePaths returns the home path of every locale, default first.
func (r *Registry) HomePaths() []string {
	paths := make([]string, 0, len(r.locales))
	for _, code := range r.locales {
		paths = append(paths, r.HomePath(code))
	}
	return paths
}

// Localize prepends the locale prefix to a locale-less path.
func (r *Registry) Localize(locale, path string) string {
	prefix := r.Prefix(locale)
	if path == "" || path == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + path
}

// MatchPrefix reports whether url starts with a supported locale segment and
// returns the locale and the remaining path. The remainder of "/nl" is "".
func (r *Registry) MatchPrefix(url string) (string, string, bool) {
	for _, code := range r.locales {
		segment := "/" + code
		if url == segment {
			return code, "", true
		}
		if strings.HasPrefix(url, segment+"/") {
			return code, url[len(segment):], true
		}
	}
	return "", url, false
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
