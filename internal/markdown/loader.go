package markdown

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// LoaderConfig configures file discovery.
type LoaderConfig struct {
	DefaultLocale string
	Locales       []string
	// Pattern filters file names, "*.md" when blank.
	Pattern   string
	Recursive bool
}

// Loader reads Markdown files from an fs.FS. A file's locale comes from its
// first directory ("nl/about.md") or a locale suffix ("about.nl.md"), else the
// default locale. Files that only differ by locale share a Key.
type Loader struct {
	fs            fs.FS
	defaultLocale string
	locales       []string
	pattern       string
	recursive     bool
}

func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	pattern := strings.TrimSpace(cfg.Pattern)
	if pattern == "" {
		pattern = "*.md"
	}
	return &Loader{
		fs:            filesystem,
		defaultLocale: cfg.DefaultLocale,
		locales:       slices.Clone(cfg.Locales),
		pattern:       pattern,
		recursive:     cfg.Recursive,
	}
}

// LoadFile reads and parses one file. name is slash separated and relative to
// the loader root.
func (l *Loader) LoadFile(ctx context.Context, name string) (*interfaces.MarkdownFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = cleanName(name)
	data, err := fs.ReadFile(l.fs, name)
	if err != nil {
		return nil, fmt.Errorf("markdown loader read %s: %w", name, err)
	}
	info, err := fs.Stat(l.fs, name)
	if err != nil {
		return nil, fmt.Errorf("markdown loader stat %s: %w", name, err)
	}
	locale, key := l.split(name)
	return BuildFile(name, locale, key, data, info.ModTime())
}

// LoadDirectory reads every matching file under dir, sorted by path.
func (l *Loader) LoadDirectory(ctx context.Context, dir string, opts interfaces.LoadOptions) ([]*interfaces.MarkdownFile, error) {
	root := cleanName(dir)
	recursive := l.recursive
	if opts.Recursive != nil {
		recursive = *opts.Recursive
	}
	pattern := l.pattern
	if strings.TrimSpace(opts.Pattern) != "" {
		pattern = opts.Pattern
	}

	var files []*interfaces.MarkdownFile
	err := fs.WalkDir(l.fs, root, func(name string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if name != root && !recursive && !l.isLocaleDir(root, name) {
				return fs.SkipDir
			}
			return nil
		}
		if ok, _ := path.Match(pattern, path.Base(name)); !ok {
			return nil
		}
		file, err := l.LoadFile(ctx, name)
		if err != nil {
			return err
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// isLocaleDir lets a non-recursive walk still enter the top level locale
// directories.
func (l *Loader) isLocaleDir(root, name string) bool {
	if path.Dir(name) != root {
		return false
	}
	return slices.Contains(l.locales, path.Base(name))
}

func (l *Loader) split(name string) (string, string) {
	locale := l.defaultLocale
	rest := name
	if first, tail, ok := strings.Cut(name, "/"); ok && slices.Contains(l.locales, first) {
		locale = first
		rest = tail
	}
	rest = strings.TrimSuffix(rest, path.Ext(rest))
	if dot := strings.LastIndex(rest, "."); dot >= 0 && slices.Contains(l.locales, rest[dot+1:]) {
		locale = rest[dot+1:]
		rest = rest[:dot]
	}
	return locale, rest
}

func cleanName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "."
	}
	return strings.TrimPrefix(path.Clean(name), "/")
}
