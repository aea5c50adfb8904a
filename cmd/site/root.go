// Command site runs the site server and its maintenance tasks.
//
// Configuration is read from --config (or SITE_CONFIG_FILE) and SITE_*
// environment variables, e.g. SITE_SERVER_ADDR or SITE_STORAGE_DSN.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sitecms"
)

const configFileEnv = "SITE_CONFIG_FILE"

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "site",
		Short:         "Serve and maintain the bilingual marketing site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml); defaults to $"+configFileEnv)
	root.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "log level override (trace, debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newImportCmd(opts),
		newRevalidateCmd(opts),
		newPublishCmd(opts),
	)
	return root
}

// loadConfig resolves the config file from the flag or environment and
// applies the global flag overrides.
func (o *rootOptions) loadConfig() (sitecms.Config, error) {
	path := strings.TrimSpace(o.configFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(configFileEnv))
	}
	cfg, err := sitecms.LoadConfig(path)
	if err != nil {
		return sitecms.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// openModule builds a module for one-shot commands. The scheduler is never
// needed outside serve.
func openModule(ctx context.Context, cfg sitecms.Config) (*sitecms.Module, error) {
	cfg.Scheduler.Enabled = false
	return sitecms.New(ctx, cfg)
}
