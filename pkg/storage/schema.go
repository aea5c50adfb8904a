package storage

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/forms"
	"github.com/goliatone/go-sitecms/internal/media"
)

// Models lists every table the site persists.
func Models() []any {
	return []any{
		(*documents.Document)(nil),
		(*documents.Version)(nil),
		(*forms.Form)(nil),
		(*forms.Submission)(nil),
		(*media.Media)(nil),
	}
}

type index struct {
	model   any
	name    string
	columns []string
	unique  bool
}

var indexes = []index{
	{(*documents.Document)(nil), "documents_document_locale_uidx", []string{"document_id", "locale"}, true},
	{(*documents.Document)(nil), "documents_locale_url_uidx", []string{"locale", "url"}, true},
	{(*documents.Document)(nil), "documents_kind_status_idx", []string{"kind", "status"}, false},
	{(*documents.Version)(nil), "document_versions_document_locale_idx", []string{"document_id", "locale", "version"}, false},
	{(*forms.Form)(nil), "forms_form_locale_uidx", []string{"form_id", "locale"}, true},
	{(*forms.Submission)(nil), "form_submissions_form_idx", []string{"form_id"}, false},
}

// EnsureSchema creates missing tables and indexes. It is safe to run on every
// start.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table for %T: %w", model, err)
		}
	}
	for _, idx := range indexes {
		query := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists()
		if idx.unique {
			query = query.Unique()
		}
		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("storage: create index %s: %w", idx.name, err)
		}
	}
	return nil
}
