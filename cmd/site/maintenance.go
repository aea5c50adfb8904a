package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/spf13/cobra"

	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Storage.Enabled() {
				return errors.New("migrate: storage.dsn is not set")
			}
			cfg.Storage.AutoMigrate = true

			module, err := openModule(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer module.Close(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var (
		contentDir string
		directory  string
		opts       interfaces.ImportOptions
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a markdown directory as documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			cfg.Markdown.Enabled = true
			if contentDir != "" {
				cfg.Markdown.ContentDir = contentDir
			}

			module, err := openModule(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer module.Close(cmd.Context())

			result, err := module.Markdown().ImportDirectory(cmd.Context(), directory, opts)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "created=%d updated=%d skipped=%d failed=%d dry_run=%t\n",
					len(result.Created), len(result.Updated), len(result.Skipped), len(result.Errors), opts.DryRun)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&contentDir, "content-dir", "", "markdown content root (defaults to markdown.content_dir)")
	cmd.Flags().StringVar(&directory, "dir", ".", "directory to import, relative to the content root")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "document kind when neither frontmatter nor location names one")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status applied when frontmatter leaves it blank")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report changes without saving")
	return cmd
}

// newRevalidateCmd drops cache tags and route entries. Route entries only
// live in a serving process, so from the CLI this matters for shared (redis)
// tag caches.
func newRevalidateCmd(root *rootOptions) *cobra.Command {
	var msg sitecmd.RevalidatePathsCommand
	cmd := &cobra.Command{
		Use:   "revalidate [paths...]",
		Short: "Invalidate cached paths and tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			module, err := openModule(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer module.Close(cmd.Context())

			msg.Paths = args
			msg.Tags = splitList(msg.Tags)
			if err := dispatcher.Dispatch(cmd.Context(), msg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revalidated paths=%d tags=%d\n", len(msg.Paths), len(msg.Tags))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&msg.Tags, "tags", nil, "cache tags to drop")
	cmd.Flags().BoolVar(&msg.All, "all", false, "mark every cached route stale")
	return cmd
}

func newPublishCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish drafts whose publish date has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			module, err := openModule(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer module.Close(cmd.Context())

			if err := dispatcher.Dispatch(cmd.Context(), sitecmd.PublishScheduledCommand{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "scheduled documents published")
			return nil
		},
	}
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
