package runtimeconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SITE_SERVER_ADDR.
const EnvPrefix = "SITE"

// envAliases bind the unprefixed variable names the hosted site used.
var envAliases = map[string][]string{
	"site.url":            {"SITE_URL", "NEXT_PUBLIC_SERVER_URL"},
	"site.cron_secret":    {"SITE_CRON_SECRET", "CRON_SECRET"},
	"site.preview_secret": {"SITE_PREVIEW_SECRET", "PREVIEW_SECRET"},
	"storage.dsn":         {"SITE_STORAGE_DSN", "DATABASE_URL"},
	"cache.redis.addr":    {"SITE_CACHE_REDIS_ADDR", "REDIS_ADDR"},
}

// overridable lists the scalar keys that can be set from the environment
// without appearing in a config file.
var overridable = []string{
	"server.addr",
	"server.max_body_bytes",
	"i18n.default_locale",
	"i18n.locales",
	"storage.driver",
	"storage.auto_migrate",
	"cache.driver",
	"cache.redis.password",
	"cache.redis.db",
	"media.backend",
	"media.base_url",
	"media.root",
	"media.s3.bucket",
	"media.s3.region",
	"media.s3.endpoint",
	"media.s3.access_key_id",
	"media.s3.secret_access_key",
	"markdown.enabled",
	"markdown.content_dir",
	"scheduler.enabled",
	"logging.level",
	"logging.format",
}

// Load reads path (when non-empty) over DefaultConfig, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("site config: bind %s: %w", key, err)
		}
	}
	for _, key := range overridable {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("site config: bind %s: %w", key, err)
		}
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("site config: read %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("site config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
