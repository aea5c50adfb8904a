package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func useDatabase(t *testing.T) {
	t.Helper()
	t.Setenv(configFileEnv, "")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "site.db")+"?_fk=1")
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv(configFileEnv, "")
	t.Setenv("DATABASE_URL", "")
	if _, err := execute(t, "migrate"); err == nil || !strings.Contains(err.Error(), "storage.dsn") {
		t.Fatalf("expected missing dsn error, got %v", err)
	}
}

func TestMigrateCreatesSchema(t *testing.T) {
	useDatabase(t)
	out, err := execute(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "schema is up to date") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestImportMarkdownIsIdempotent(t *testing.T) {
	useDatabase(t)
	content := t.TempDir()
	if err := os.MkdirAll(filepath.Join(content, "nl"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"about.md":    "---\ntitle: About\nurl: /about\nstatus: published\n---\n# About\n",
		"nl/about.md": "---\ntitle: Over ons\nurl: /nl/over-ons\nstatus: published\n---\n# Over ons\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(content, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, "import", "--content-dir", content)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "created=2") {
		t.Fatalf("expected two created documents, got %q", out)
	}

	out, err = execute(t, "import", "--content-dir", content)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !strings.Contains(out, "created=0") {
		t.Fatalf("expected nothing new on the second run, got %q", out)
	}
}

func TestRevalidateAndPublish(t *testing.T) {
	t.Setenv(configFileEnv, "")
	t.Setenv("DATABASE_URL", "")

	out, err := execute(t, "revalidate", "/", "/nl", "--tags", "page:en, ")
	if err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if !strings.Contains(out, "paths=2 tags=1") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := execute(t, "revalidate"); err == nil {
		t.Fatal("expected revalidate without paths, tags or --all to fail validation")
	}

	if _, err := execute(t, "publish"); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
