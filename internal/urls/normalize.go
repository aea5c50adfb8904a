package urls

import (
	"strings"
	"unicode"

	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-sitecms/internal/i18n"
)

// Normalizer canonicalizes author input before validation and derives the
// locale-less form of stored URLs.
type Normalizer struct {
	locales *i18n.Registry
}

func NewNormalizer(locales *i18n.Registry) *Normalizer {
	return &Normalizer{locales: locales}
}

// Normalize trims raw, ensures a leading slash, strips trailing slashes and
// collapses repeated slashes. A blank raw value is derived from title and
// prefixed with the locale segment for non-default locales.
func (n *Normalizer) Normalize(raw, title, locale string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		derived := Slugify(title)
		if derived == "" {
			return ""
		}
		return n.locales.Localize(locale, "/"+derived)
	}

	value = strings.TrimRightFunc(collapseSlashes("/"+value), func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})
	if value == "" {
		return "/"
	}
	return value
}

// WithoutLocale strips a recognized locale segment from url. The bare locale
// segment maps to "/".
func (n *Normalizer) WithoutLocale(url string) string {
	_, rest, ok := n.locales.MatchPrefix(url)
	if !ok {
		return url
	}
	if rest == "" {
		return "/"
	}
	return rest
}

// WithLocale is the inverse of WithoutLocale for locale. It is the identity
// for the default locale.
func (n *Normalizer) WithLocale(path, locale string) string {
	if n.locales.IsDefault(locale) {
		return path
	}
	return n.locales.Localize(locale, path)
}

// Slugify lower-cases title, turns whitespace into hyphens, drops anything
// outside [a-z0-9-], collapses hyphen runs and trims edge hyphens.
func Slugify(title string) string {
	candidate := strings.TrimSpace(title)
	if candidate == "" {
		return ""
	}
	if normalized, err := slug.Normalize(candidate); err == nil && normalized != "" {
		candidate = normalized
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(candidate) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == '_' || r == ' ' || r == '\t' || r == '\n':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func collapseSlashes(value string) string {
	if !strings.Contains(value, "//") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	prevSlash := false
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// BlogPostURL derives the URL of a blog post from its slug.
func (n *Normalizer) BlogPostURL(slug, locale string) string {
	return n.locales.Localize(locale, "/blog/"+strings.Trim(slug, "/"))
}

// SectionURL derives the URL of a fixed site section such as "blog" or
// "privacy-policy". An empty section is the locale home.
func (n *Normalizer) SectionURL(section, locale string) string {
	section = strings.Trim(section, "/")
	if section == "" {
		return n.locales.HomePath(locale)
	}
	return n.locales.Localize(locale, "/"+section)
}
