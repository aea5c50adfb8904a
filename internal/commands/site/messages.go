package sitecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-sitecms/internal/documents"
)

const (
	revalidatePathsMessageType  = "sitecms.revalidate_paths"
	publishScheduledMessageType = "sitecms.publish_scheduled"
	keepWarmMessageType         = "sitecms.keep_warm"
	importMarkdownMessageType   = "sitecms.markdown.import"
)

// RevalidatePathsCommand marks rendered routes stale and drops cache entries
// by tag. All marks every cached route stale and ignores Paths.
type RevalidatePathsCommand struct {
	Paths []string `json:"paths,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	All   bool     `json:"all,omitempty"`
}

func (RevalidatePathsCommand) Type() string { return revalidatePathsMessageType }

func (cmd RevalidatePathsCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Paths,
			validation.When(!cmd.All && len(cmd.Tags) == 0, validation.Required.Error("paths, tags or all is required")),
			validation.Each(validation.By(func(value any) error {
				if path, _ := value.(string); !strings.HasPrefix(path, "/") {
					return validation.NewError("sitecms.revalidate_paths.path_invalid", "path must start with /")
				}
				return nil
			})),
		),
		validation.Field(&cmd.Tags, validation.Each(validation.Required)),
	)
}

// PublishScheduledCommand publishes drafts whose publish time has passed.
type PublishScheduledCommand struct{}

func (PublishScheduledCommand) Type() string { return publishScheduledMessageType }

func (PublishScheduledCommand) Validate() error { return nil }

// KeepWarmCommand pings the content store so idle connections stay open.
type KeepWarmCommand struct{}

func (KeepWarmCommand) Type() string { return keepWarmMessageType }

func (KeepWarmCommand) Validate() error { return nil }

// ImportMarkdownCommand imports a Markdown directory as documents.
type ImportMarkdownCommand struct {
	Directory string `json:"directory"`
	Kind      string `json:"kind,omitempty"`
	Status    string `json:"status,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
}

func (ImportMarkdownCommand) Type() string { return importMarkdownMessageType }

func (cmd ImportMarkdownCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Directory, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("sitecms.markdown.import.directory_required", "directory is required")
			}
			return nil
		})),
		validation.Field(&cmd.Kind, validation.By(func(value any) error {
			if kind := value.(string); kind != "" {
				if _, err := documents.ParseKind(kind); err != nil {
					return validation.NewError("sitecms.markdown.import.kind_invalid", "unknown document kind")
				}
			}
			return nil
		})),
		validation.Field(&cmd.Status, validation.In("", string(documents.StatusDraft), string(documents.StatusPublished))),
	)
}
