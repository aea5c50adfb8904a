package urls

import (
	"testing"

	"github.com/goliatone/go-sitecms/internal/i18n"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(i18n.MustNewRegistry(i18n.DefaultConfig()))
}

func TestNormalize(t *testing.T) {
	normalizer := newTestNormalizer()

	cases := []struct {
		raw    string
		title  string
		locale string
		want   string
	}{
		{raw: "  about ", locale: "en", want: "/about"},
		{raw: "/about/", locale: "en", want: "/about"},
		{raw: "//about///team//", locale: "en", want: "/about/team"},
		{raw: "/", locale: "en", want: "/"},
		{raw: "///", locale: "en", want: "/"},
		{raw: "nl/over-ons", locale: "nl", want: "/nl/over-ons"},
		{raw: "", title: "About Us", locale: "en", want: "/about-us"},
		{raw: " ", title: "Over  ons!", locale: "nl", want: "/nl/over-ons"},
		{raw: "", title: "", locale: "nl", want: ""},
	}
	for _, tc := range cases {
		if got := normalizer.Normalize(tc.raw, tc.title, tc.locale); got != tc.want {
			t.Fatalf("Normalize(%q, %q, %q) = %q, want %q", tc.raw, tc.title, tc.locale, got, tc.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":         "hello-world",
		"  Spaces   around  ": "spaces-around",
		"Already-slugged":     "already-slugged",
		"--Edge--Hyphens--":   "edge-hyphens",
		"":                    "",
	}
	for title, want := range cases {
		if got := Slugify(title); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestWithoutLocale(t *testing.T) {
	normalizer := newTestNormalizer()

	cases := map[string]string{
		"/nl/over-ons": "/over-ons",
		"/nl":          "/",
		"/about":       "/about",
		"/nlx/page":    "/nlx/page",
	}
	for url, want := range cases {
		if got := normalizer.WithoutLocale(url); got != want {
			t.Fatalf("WithoutLocale(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestWithLocaleRoundTrip(t *testing.T) {
	normalizer := newTestNormalizer()

	if got := normalizer.WithLocale(normalizer.WithoutLocale("/nl/over-ons"), "nl"); got != "/nl/over-ons" {
		t.Fatalf("unexpected round trip %q", got)
	}
	if got := normalizer.WithLocale("/about", "en"); got != "/about" {
		t.Fatalf("expected identity for default locale, got %q", got)
	}
}

func TestDerivedURLs(t *testing.T) {
	normalizer := newTestNormalizer()

	if got := normalizer.BlogPostURL("first-post", "en"); got != "/blog/first-post" {
		t.Fatalf("BlogPostURL en = %q", got)
	}
	if got := normalizer.BlogPostURL("eerste-post", "nl"); got != "/nl/blog/eerste-post" {
		t.Fatalf("BlogPostURL nl = %q", got)
	}
	if got := normalizer.SectionURL("", "nl"); got != "/nl" {
		t.Fatalf("SectionURL home nl = %q", got)
	}
	if got := normalizer.SectionURL("privacy-policy", "en"); got != "/privacy-policy" {
		t.Fatalf("SectionURL privacy en = %q", got)
	}
}
