package i18n

import (
	"errors"
	"reflect"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestNewRegistryNormalizesLocales(t *testing.T) {
	registry, err := NewRegistry(Config{DefaultLocale: " EN ", Locales: []string{"nl", "en", "NL", ""}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := registry.Codes(); !reflect.DeepEqual(got, []string{"en", "nl"}) {
		t.Fatalf("unexpected codes %v", got)
	}
	if registry.Default() != "en" {
		t.Fatalf("expected default en, got %q", registry.Default())
	}
	if got := registry.NonDefault(); !reflect.DeepEqual(got, []string{"nl"}) {
		t.Fatalf("unexpected non-default codes %v", got)
	}
}

func TestNewRegistryRequiresDefault(t *testing.T) {
	if _, err := NewRegistry(Config{}); !errors.Is(err, ErrNoLocales) {
		t.Fatalf("expected ErrNoLocales, got %v", err)
	}
	if _, err := NewRegistry(Config{Locales: []string{"en"}}); !errors.Is(err, ErrDefaultLocaleMissing) {
		t.Fatalf("expected ErrDefaultLocaleMissing, got %v", err)
	}
}

func TestRegistryResolve(t *testing.T) {
	registry := MustNewRegistry(DefaultConfig())

	cases := []struct {
		input string
		want  string
		err   bool
	}{
		{input: "", want: "en"},
		{input: "nl", want: "nl"},
		{input: "NL", want: "nl"},
		{input: "de", err: true},
	}
	for _, tc := range cases {
		got, err := registry.Resolve(tc.input)
		if tc.err {
			if !errors.Is(err, ErrUnknownLocale) {
				t.Fatalf("Resolve(%q): expected ErrUnknownLocale, got %v", tc.input, err)
			}
			var notFound *LocaleNotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("Resolve(%q): expected LocaleNotFoundError", tc.input)
			}
			if !goerrors.IsCategory(notFound.AsNotFound(), goerrors.CategoryNotFound) {
				t.Fatalf("expected not found category")
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("Resolve(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
	}
}

func TestRegistryPaths(t *testing.T) {
	registry := MustNewRegistry(DefaultConfig())

	if registry.Prefix("en") != "" || registry.Prefix("nl") != "/nl" {
		t.Fatalf("unexpected prefixes %q %q", registry.Prefix("en"), registry.Prefix("nl"))
	}
	if got := registry.HomePaths(); !reflect.DeepEqual(got, []string{"/", "/nl"}) {
		t.Fatalf("unexpected home paths %v", got)
	}
	if got := registry.Localize("nl", "/blog"); got != "/nl/blog" {
		t.Fatalf("Localize nl = %q", got)
	}
	if got := registry.Localize("en", "blog"); got != "/blog" {
		t.Fatalf("Localize en = %q", got)
	}
	if got := registry.Localize("nl", "/"); got != "/nl" {
		t.Fatalf("Localize nl home = %q", got)
	}
}

func TestRegistryMatchPrefix(t *testing.T) {
	registry := MustNewRegistry(DefaultConfig())

	cases := []struct {
		url    string
		locale string
		rest   string
		ok     bool
	}{
		{url: "/nl", locale: "nl", rest: "", ok: true},
		{url: "/nl/over-ons", locale: "nl", rest: "/over-ons", ok: true},
		{url: "/nlx", rest: "/nlx"},
		{url: "/en/about", locale: "en", rest: "/about", ok: true},
		{url: "/about", rest: "/about"},
	}
	for _, tc := range cases {
		locale, rest, ok := registry.MatchPrefix(tc.url)
		if locale != tc.locale || rest != tc.rest || ok != tc.ok {
			t.Fatalf("MatchPrefix(%q) = %q, %q, %v", tc.url, locale, rest, ok)
		}
	}
}
