package sitecms

import "github.com/goliatone/go-sitecms/internal/runtimeconfig"

var (
	ErrSiteURLInvalid           = runtimeconfig.ErrSiteURLInvalid
	ErrDefaultLocaleNotListed   = runtimeconfig.ErrDefaultLocaleNotListed
	ErrRedisAddrRequired        = runtimeconfig.ErrRedisAddrRequired
	ErrMediaBackendUnknown      = runtimeconfig.ErrMediaBackendUnknown
	ErrMediaLocalRootRequired   = runtimeconfig.ErrMediaLocalRootRequired
	ErrMediaBucketRequired      = runtimeconfig.ErrMediaBucketRequired
	ErrMarkdownContentDirNeeded = runtimeconfig.ErrMarkdownContentDirNeeded
	ErrLoggingProviderRequired  = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config          = runtimeconfig.Config
	SiteConfig      = runtimeconfig.SiteConfig
	ServerConfig    = runtimeconfig.ServerConfig
	I18NConfig      = runtimeconfig.I18NConfig
	CacheConfig     = runtimeconfig.CacheConfig
	RedisConfig     = runtimeconfig.RedisConfig
	RateLimitConfig = runtimeconfig.RateLimitConfig
	MediaConfig     = runtimeconfig.MediaConfig
	S3MediaConfig   = runtimeconfig.S3MediaConfig
	FormsConfig     = runtimeconfig.FormsConfig
	DocumentsConfig = runtimeconfig.DocumentsConfig
	MarkdownConfig  = runtimeconfig.MarkdownConfig
	SchedulerConfig = runtimeconfig.SchedulerConfig
	CommandsConfig  = runtimeconfig.CommandsConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML, JSON or TOML file (optional) and SITE_*
// environment overrides on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
