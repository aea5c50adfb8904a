package sitemap

import (
	"fmt"
	"strings"

	urlkit "github.com/goliatone/go-urlkit"

	"github.com/goliatone/go-sitecms/internal/i18n"
)

const (
	siteGroup = "site"

	routeHome = "home"
	routeBlog = "blog"
	routePost = "post"
)

// Links builds absolute site URLs per locale. The default locale lives in the
// root route group and every other locale in a child group mounted at /{locale}.
type Links struct {
	manager *urlkit.RouteManager
	locales *i18n.Registry
}

func NewLinks(baseURL string, locales *i18n.Registry) *Links {
	paths := map[string]string{
		routeHome: "/",
		routeBlog: "/blog",
		routePost: "/blog/:slug",
	}
	children := make([]urlkit.GroupConfig, 0, len(locales.NonDefault()))
	for _, locale := range locales.NonDefault() {
		children = append(children, urlkit.GroupConfig{
			Name:  locale,
			Path:  "/" + locale,
			Paths: paths,
		})
	}
	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{{
			Name:    siteGroup,
			BaseURL: strings.TrimRight(baseURL, "/"),
			Paths:   paths,
			Groups:  children,
		}},
	})
	return &Links{manager: manager, locales: locales}
}

// Home is the locale root without a trailing slash.
func (l *Links) Home(locale string) (string, error) {
	return l.build(locale, routeHome, nil)
}

func (l *Links) Blog(locale string) (string, error) {
	return l.build(locale, routeBlog, nil)
}

func (l *Links) Post(locale, slug string) (string, error) {
	return l.build(locale, routePost, map[string]any{"slug": slug})
}

// Page appends a locale-less page URL to the locale root.
func (l *Links) Page(locale, urlWithoutLocale string) (string, error) {
	home, err := l.Home(locale)
	if err != nil {
		return "", err
	}
	return home + "/" + strings.TrimLeft(urlWithoutLocale, "/"), nil
}

func (l *Links) build(locale, route string, params map[string]any) (url string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sitemap: route %q for locale %q: %v", route, locale, rec)
		}
	}()

	if !l.locales.IsSupported(locale) {
		return "", fmt.Errorf("sitemap: unsupported locale %q", locale)
	}
	group := l.manager.Group(siteGroup)
	if !l.locales.IsDefault(locale) {
		group = group.Group(locale)
	}
	builder := group.Builder(route)
	for key, value := range params {
		builder.WithParam(key, value)
	}
	url, err = builder.Build()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(url, "/"), nil
}
