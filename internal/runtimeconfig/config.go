package runtimeconfig

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-sitecms/internal/scheduler"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
	"github.com/goliatone/go-sitecms/pkg/storage"
)

var (
	ErrSiteURLInvalid           = errors.New("site config: site url must be an absolute http(s) url")
	ErrDefaultLocaleNotListed   = errors.New("site config: default locale must be listed in locales")
	ErrRedisAddrRequired        = errors.New("site config: redis address is required when the redis cache driver is selected")
	ErrMediaBackendUnknown      = errors.New("site config: media backend is invalid")
	ErrMediaLocalRootRequired   = errors.New("site config: media root is required for the local backend")
	ErrMediaBucketRequired      = errors.New("site config: media bucket is required for the s3 backend")
	ErrMarkdownContentDirNeeded = errors.New("site config: markdown content directory is required when markdown is enabled")
	ErrLoggingProviderRequired  = errors.New("site config: logging provider is required")
	ErrLoggingProviderUnknown   = errors.New("site config: logging provider is invalid")
	ErrLoggingLevelInvalid      = errors.New("site config: logging level is invalid")
	ErrLoggingFormatInvalid     = errors.New("site config: logging format is invalid")
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"

	MediaBackendMemory = "memory"
	MediaBackendLocal  = "local"
	MediaBackendS3     = "s3"
)

// Config aggregates every runtime setting of the site.
type Config struct {
	Site      SiteConfig      `mapstructure:"site"`
	Server    ServerConfig    `mapstructure:"server"`
	I18N      I18NConfig      `mapstructure:"i18n"`
	Storage   storage.Config  `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Media     MediaConfig     `mapstructure:"media"`
	Forms     FormsConfig     `mapstructure:"forms"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Markdown  MarkdownConfig  `mapstructure:"markdown"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Commands  CommandsConfig  `mapstructure:"commands"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SiteConfig holds the public site settings.
type SiteConfig struct {
	URL           string `mapstructure:"url"`
	CronSecret    string `mapstructure:"cron_secret"`
	PreviewSecret string `mapstructure:"preview_secret"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
	// Rewrites serve the value path for requests to the key path.
	Rewrites map[string]string `mapstructure:"rewrites"`
	// RedirectHosts permanently redirect a host to a base URL.
	RedirectHosts map[string]string `mapstructure:"redirect_hosts"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type I18NConfig struct {
	DefaultLocale string   `mapstructure:"default_locale"`
	Locales       []string `mapstructure:"locales"`
}

// CacheConfig selects the tag cache shared by resolver, sitemap and rate
// limiter. RepositoryTTL enables the go-repository-cache read cache on the
// document repository when a database is configured. RouteEntries bounds the
// in-process rendered route cache.
type CacheConfig struct {
	Driver        string        `mapstructure:"driver"`
	ResolverTTL   time.Duration `mapstructure:"resolver_ttl"`
	SitemapTTL    time.Duration `mapstructure:"sitemap_ttl"`
	RepositoryTTL time.Duration `mapstructure:"repository_ttl"`
	RouteEntries  int           `mapstructure:"route_entries"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type RateLimitConfig struct {
	Window time.Duration `mapstructure:"window"`
	Max    int           `mapstructure:"max"`
}

type MediaConfig struct {
	Backend   string        `mapstructure:"backend"`
	BaseURL   string        `mapstructure:"base_url"`
	Root      string        `mapstructure:"root"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	S3        S3MediaConfig `mapstructure:"s3"`
}

type S3MediaConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type FormsConfig struct {
	StripMarkup  bool `mapstructure:"strip_markup"`
	SniffContent bool `mapstructure:"sniff_content"`
}

type DocumentsConfig struct {
	MaxVersions int `mapstructure:"max_versions"`
}

type MarkdownConfig struct {
	Enabled    bool                    `mapstructure:"enabled"`
	ContentDir string                  `mapstructure:"content_dir"`
	Pattern    string                  `mapstructure:"pattern"`
	Recursive  bool                    `mapstructure:"recursive"`
	Parser     interfaces.ParseOptions `mapstructure:"parser"`
}

type SchedulerConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Location   string         `mapstructure:"location"`
	JobTimeout time.Duration  `mapstructure:"job_timeout"`
	Jobs       scheduler.Jobs `mapstructure:"jobs"`
}

// CommandsConfig tunes command handlers. Retries applies to commands sent
// through the dispatcher.
type CommandsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `mapstructure:"provider"`
	Level     string   `mapstructure:"level"`
	Format    string   `mapstructure:"format"`
	AddSource bool     `mapstructure:"add_source"`
	Focus     []string `mapstructure:"focus"`
}

// DefaultConfig returns a runnable configuration: in-memory storage, cache
// and media, English and Dutch locales, and the legal-page rewrites the Dutch
// site links to.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			URL: "http://localhost:3000",
			Rewrites: map[string]string{
				"/nl/privacybeleid":        "/nl/privacy-policy",
				"/nl/cookiebeleid":         "/nl/cookie-policy",
				"/nl/algemene-voorwaarden": "/nl/terms-and-conditions",
			},
			RedirectHosts: map[string]string{},
		},
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    124 << 20,
		},
		I18N: I18NConfig{
			DefaultLocale: "en",
			Locales:       []string{"en", "nl"},
		},
		Storage: storage.Config{
			Driver:      storage.DriverSQLite,
			AutoMigrate: true,
		},
		Cache: CacheConfig{
			Driver:      CacheDriverMemory,
			ResolverTTL:  time.Hour,
			SitemapTTL:   time.Hour,
			RouteEntries: 2048,
			Redis:        RedisConfig{Prefix: "site:"},
		},
		RateLimit: RateLimitConfig{
			Window: time.Minute,
			Max:    5,
		},
		Media: MediaConfig{
			Backend: MediaBackendMemory,
			BaseURL: "/media",
			Root:    "media",
		},
		Documents: DocumentsConfig{MaxVersions: 30},
		Markdown: MarkdownConfig{
			ContentDir: "content",
			Pattern:    "*.md",
			Recursive:  true,
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			Location:   "UTC",
			JobTimeout: time.Minute,
			Jobs:       scheduler.DefaultJobs(),
		},
		Commands: CommandsConfig{Timeout: 30 * time.Second, Retries: 1},
		Logging: LoggingConfig{
			Provider: "gologger",
			Level:    "info",
			Format:   "json",
		},
	}
}

// Validate checks field rules with ozzo-validation first, then the
// cross-field constraints that map to sentinel errors.
func (cfg Config) Validate() error {
	if err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Server),
		validation.Field(&cfg.RateLimit),
		validation.Field(&cfg.Documents),
		validation.Field(&cfg.I18N),
	); err != nil {
		return err
	}

	if err := validateSiteURL(cfg.Site.URL); err != nil {
		return err
	}
	if !containsFold(cfg.I18N.Locales, cfg.I18N.DefaultLocale) {
		return fmt.Errorf("%w: %s", ErrDefaultLocaleNotListed, cfg.I18N.DefaultLocale)
	}
	if _, err := cfg.Storage.NormalizedDriver(); err != nil {
		return err
	}
	if err := cfg.Cache.validate(); err != nil {
		return err
	}
	if err := cfg.Media.validate(); err != nil {
		return err
	}
	if cfg.Markdown.Enabled && strings.TrimSpace(cfg.Markdown.ContentDir) == "" {
		return ErrMarkdownContentDirNeeded
	}
	if _, err := cfg.Scheduler.LoadLocation(); err != nil {
		return err
	}
	return cfg.Logging.validate()
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.MaxBodyBytes, validation.Min(int64(1))),
	)
}

func (c RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Window, validation.Min(time.Second)),
		validation.Field(&c.Max, validation.Min(1)),
	)
}

func (c DocumentsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxVersions, validation.Min(0)),
	)
}

func (c I18NConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DefaultLocale, validation.Required),
		validation.Field(&c.Locales, validation.Required, validation.Each(validation.Required)),
	)
}

func (c CacheConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", CacheDriverMemory:
		return nil
	case CacheDriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return ErrRedisAddrRequired
		}
		return nil
	default:
		return fmt.Errorf("site config: cache driver %q is invalid", c.Driver)
	}
}

// UsesRedis reports whether the redis driver is selected.
func (c CacheConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(c.Driver), CacheDriverRedis)
}

func (c MediaConfig) validate() error {
	switch c.NormalizedBackend() {
	case MediaBackendMemory:
		return nil
	case MediaBackendLocal:
		if strings.TrimSpace(c.Root) == "" {
			return ErrMediaLocalRootRequired
		}
		return nil
	case MediaBackendS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return ErrMediaBucketRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrMediaBackendUnknown, c.Backend)
	}
}

// NormalizedBackend lowercases the backend name; blank means memory.
func (c MediaConfig) NormalizedBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return MediaBackendMemory
	}
	return backend
}

// LoadLocation resolves the scheduler time zone; blank means UTC.
func (c SchedulerConfig) LoadLocation() (*time.Location, error) {
	name := strings.TrimSpace(c.Location)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("site config: scheduler location %q: %w", name, err)
	}
	return loc, nil
}

func (c LoggingConfig) validate() error {
	provider := normalizeProvider(c.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(c.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(c.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func validateSiteURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrSiteURLInvalid, raw)
	}
	return nil
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "nop", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
