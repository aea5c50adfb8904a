// Package markdown imports Markdown files with YAML frontmatter as site
// documents. Files are discovered through an fs.FS, rendered with goldmark and
// saved through documents.Service, so URL rules and cache revalidation apply
// to imported content the same way they apply to editor changes.
package markdown
