package markdown

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"maps"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// ParseFrontMatter splits source into metadata and the Markdown body.
func ParseFrontMatter(source []byte) (interfaces.FrontMatter, []byte, error) {
	var meta interfaces.FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return interfaces.FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	meta.Custom = maps.Clone(meta.Custom)
	if meta.Custom == nil {
		meta.Custom = map[string]any{}
	}
	return meta, body, nil
}

// BuildFile parses source into a MarkdownFile. HTML is left empty so callers
// render with their own options.
func BuildFile(path, locale, key string, source []byte, modified time.Time) (*interfaces.MarkdownFile, error) {
	meta, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if meta.Key != "" {
		key = meta.Key
	}
	sum := sha256.Sum256(source)
	return &interfaces.MarkdownFile{
		Path:         path,
		Locale:       locale,
		Key:          key,
		FrontMatter:  meta,
		Body:         body,
		LastModified: modified,
		Checksum:     sum[:],
	}, nil
}
