package resolver

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/identity"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// Lookup fields.
const (
	FieldURL  = "url"
	FieldSlug = "slug"
	FieldID   = "id"
)

// MaxDepth bounds relationship expansion.
const MaxDepth = 5

// Query selects one document. Globals may leave Field and Value blank.
type Query struct {
	Kind   documents.Kind
	Field  string
	Value  string
	Locale string
	Depth  int
	Draft  bool
}

// Resolver returns the best match for a query. A missing document is
// reported as (nil, nil); only backend failures are errors.
type Resolver interface {
	Resolve(ctx context.Context, query Query) (*documents.Document, error)
}

// Finder is the read side of the document store.
type Finder interface {
	Find(ctx context.Context, query documents.Query) ([]*documents.Document, error)
}

// Direct reads from the document store on every call. Draft queries see
// every status; published queries only see published documents.
type Direct struct {
	finder  Finder
	locales *i18n.Registry
	logger  interfaces.Logger
}

func NewDirect(finder Finder, locales *i18n.Registry, logger interfaces.Logger) *Direct {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Direct{finder: finder, locales: locales, logger: logger}
}

func (d *Direct) Resolve(ctx context.Context, query Query) (*documents.Document, error) {
	locale, err := d.locales.Resolve(query.Locale)
	if err != nil {
		return nil, nil
	}

	filter, ok := d.filterFor(query, locale)
	if !ok {
		return nil, nil
	}
	doc, err := d.first(ctx, filter)
	if err != nil || doc == nil {
		return nil, err
	}

	depth := min(query.Depth, MaxDepth)
	if depth > 0 {
		seen := map[uuid.UUID]struct{}{doc.DocumentID: {}}
		if err := d.expand(ctx, doc, depth, query.Draft, seen); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (d *Direct) filterFor(query Query, locale string) (documents.Query, bool) {
	filter := documents.Query{Kinds: []documents.Kind{query.Kind}, Locale: locale}
	if !query.Draft {
		filter.Status = documents.StatusPublished
	}
	value := strings.TrimSpace(query.Value)

	switch query.Field {
	case FieldURL:
		if value == "" {
			return filter, false
		}
		filter.URL = value
	case FieldSlug:
		if value == "" {
			return filter, false
		}
		filter.Slug = value
	case FieldID:
		id, err := uuid.Parse(value)
		if err != nil {
			return filter, false
		}
		filter.DocumentID = id
	case "":
		if !query.Kind.IsGlobal() {
			return filter, false
		}
		filter.DocumentID = identity.GlobalUUID(string(query.Kind))
	default:
		return filter, false
	}
	return filter, true
}

func (d *Direct) first(ctx context.Context, filter documents.Query) (*documents.Document, error) {
	filter.Limit = 1
	records, err := d.finder.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// expand dereferences doc.Refs into doc.Resolved, skipping documents already
// on the current path.
func (d *Direct) expand(ctx context.Context, doc *documents.Document, depth int, draft bool, seen map[uuid.UUID]struct{}) error {
	if depth <= 0 || len(doc.Refs) == 0 {
		return nil
	}
	for _, ref := range doc.Refs {
		if _, cyclic := seen[ref.DocumentID]; cyclic {
			continue
		}
		filter := documents.Query{
			Kinds:      []documents.Kind{ref.Kind},
			Locale:     doc.Locale,
			DocumentID: ref.DocumentID,
		}
		if !draft {
			filter.Status = documents.StatusPublished
		}
		target, err := d.first(ctx, filter)
		if err != nil {
			return err
		}
		if target == nil {
			d.logger.Debug("resolver.ref.missing", "field", ref.Field, "document_id", ref.DocumentID.String())
			continue
		}
		seen[target.DocumentID] = struct{}{}
		if err := d.expand(ctx, target, depth-1, draft, seen); err != nil {
			return err
		}
		delete(seen, target.DocumentID)

		if doc.Resolved == nil {
			doc.Resolved = make(map[string][]*documents.Document)
		}
		doc.Resolved[ref.Field] = append(doc.Resolved[ref.Field], target)
	}
	return nil
}
