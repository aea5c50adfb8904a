package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-sitecms/internal/cache"
	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/forms"
	sitehttp "github.com/goliatone/go-sitecms/internal/http"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/logging/gologger"
	"github.com/goliatone/go-sitecms/internal/markdown"
	"github.com/goliatone/go-sitecms/internal/media"
	"github.com/goliatone/go-sitecms/internal/ratelimit"
	"github.com/goliatone/go-sitecms/internal/resolver"
	"github.com/goliatone/go-sitecms/internal/revalidate"
	"github.com/goliatone/go-sitecms/internal/routes"
	"github.com/goliatone/go-sitecms/internal/runtimeconfig"
	"github.com/goliatone/go-sitecms/internal/scheduler"
	"github.com/goliatone/go-sitecms/internal/sitemap"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
	"github.com/goliatone/go-sitecms/pkg/storage"
)

// Container wires the site runtime from a runtimeconfig.Config. Components
// backed by external services (database, redis, s3) are only created when the
// configuration asks for them; everything else falls back to memory.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	locales        *i18n.Registry
	clock          func() time.Time

	bunDB   *bun.DB
	ownsDB  bool
	redis   *redis.Client
	ownsRDB bool

	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	store      cache.Store
	routeCache *revalidate.RouteCache

	documentRepo documents.Repository
	documentSvc  documents.Service
	site         *resolver.Site
	localizer    *routes.Localizer

	s3Client   media.S3API
	mediaStore media.Store

	formSvc  forms.Service
	limiter  ratelimit.Limiter
	pipeline *forms.Pipeline

	sitemap *sitemap.Builder

	markdownFS  fs.FS
	markdownSvc *markdown.Service

	dispatch  *dispatchRegistry
	commands  *sitecmd.HandlerSet
	scheduler *scheduler.Scheduler
	api       *sitehttp.SiteAPI
}

// Option mutates the container before components are built.
type Option func(*Container)

// WithBunDB supplies an open database. The container does not close it.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the go-repository-cache service wrapped around the
// document repository.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithRedisClient supplies the redis client used by the cache and rate
// limiter. The container does not close it.
func WithRedisClient(client *redis.Client) Option {
	return func(c *Container) {
		c.redis = client
	}
}

// WithLoggerProvider replaces the provider selected by Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMarkdownFS replaces the markdown content directory with filesystem.
func WithMarkdownFS(filesystem fs.FS) Option {
	return func(c *Container) {
		c.markdownFS = filesystem
	}
}

// WithS3Client replaces the client built from Config.Media.S3.
func WithS3Client(client media.S3API) Option {
	return func(c *Container) {
		c.s3Client = client
	}
}

// NewContainer validates cfg and builds every component. On error, anything
// already opened is closed.
func NewContainer(ctx context.Context, cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	steps := []func(context.Context) error{
		c.configureLogger,
		c.configureLocales,
		c.configureStorage,
		c.configureCacheDefaults,
		c.configureStore,
		c.configureDocuments,
		c.configureMedia,
		c.configureForms,
		c.configureMarkdown,
		c.configureCommands,
		c.configureScheduler,
		c.configureHTTP,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			_ = c.Close(context.Background())
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) configureLogger(context.Context) error {
	if c.loggerProvider != nil {
		return nil
	}
	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	}
	return nil
}

func (c *Container) configureLocales(context.Context) error {
	registry, err := i18n.NewRegistry(i18n.FromModuleConfig(c.Config.I18N.DefaultLocale, c.Config.I18N.Locales))
	if err != nil {
		return err
	}
	c.locales = registry
	return nil
}

func (c *Container) configureStorage(ctx context.Context) error {
	if c.bunDB == nil && c.Config.Storage.Enabled() {
		db, err := storage.Open(ctx, c.Config.Storage)
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if c.bunDB != nil && c.Config.Storage.AutoMigrate {
		if err := storage.EnsureSchema(ctx, c.bunDB); err != nil {
			return err
		}
	}
	return nil
}

// configureCacheDefaults builds the repository cache used for bun document
// lookups when a TTL is configured.
func (c *Container) configureCacheDefaults(context.Context) error {
	if c.bunDB == nil {
		return nil
	}
	if c.cacheService == nil && c.Config.Cache.RepositoryTTL > 0 {
		cfg := repocache.DefaultConfig()
		cfg.TTL = c.Config.Cache.RepositoryTTL
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			return fmt.Errorf("repository cache: %w", err)
		}
		c.cacheService = service
	}
	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
	return nil
}

func (c *Container) configureStore(ctx context.Context) error {
	if c.Config.Cache.UsesRedis() || c.redis != nil {
		if c.redis == nil {
			redisCfg := c.Config.Cache.Redis
			client, err := cache.NewRedisClient(ctx, redisCfg.Addr, redisCfg.Password, redisCfg.DB)
			if err != nil {
				return err
			}
			c.redis = client
			c.ownsRDB = true
		}
		c.store = cache.NewRedisStore(c.redis, c.Config.Cache.Redis.Prefix)
	} else {
		c.store = cache.NewMemoryStore(cache.WithClock(c.clock))
	}
	c.routeCache = revalidate.NewRouteCache(
		revalidate.WithRouteLogger(logging.RevalidateLogger(c.loggerProvider)),
		revalidate.WithRouteClock(c.clock),
		revalidate.WithRouteCapacity(c.Config.Cache.RouteEntries),
	)
	return nil
}

func (c *Container) configureDocuments(context.Context) error {
	repoLogger := documents.WithRepositoryLogger(logging.DocumentsLogger(c.loggerProvider))
	switch {
	case c.bunDB != nil && c.cacheService != nil:
		c.documentRepo = documents.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer, repoLogger)
	case c.bunDB != nil:
		c.documentRepo = documents.NewBunRepository(c.bunDB, repoLogger)
	default:
		c.documentRepo = documents.NewMemoryRepository()
	}

	hook := revalidate.NewHook(c.store, c.routeCache, c.locales, logging.RevalidateLogger(c.loggerProvider))
	c.documentSvc = documents.NewService(c.documentRepo, c.locales,
		documents.WithHooks(hook),
		documents.WithLogger(logging.DocumentsLogger(c.loggerProvider)),
		documents.WithMaxVersions(c.Config.Documents.MaxVersions),
		documents.WithClock(c.clock),
	)

	resolverLogger := logging.ResolverLogger(c.loggerProvider)
	var decorate resolver.Decorator
	if ttl := c.Config.Cache.ResolverTTL; ttl > 0 {
		decorate = func(next resolver.Resolver) resolver.Resolver {
			return resolver.NewCached(next, c.store, c.locales, ttl)
		}
	}
	c.site = resolver.NewSite(resolver.NewDirect(c.documentRepo, c.locales, resolverLogger), c.locales, decorate)
	c.localizer = routes.NewLocalizer(c.site, c.locales, resolverLogger)

	c.sitemap = sitemap.NewBuilder(c.documentSvc, c.locales,
		sitemap.NewLinks(c.Config.Site.URL, c.locales),
		sitemap.WithCache(c.store, c.Config.Cache.SitemapTTL),
		sitemap.WithClock(c.clock),
		sitemap.WithLogger(logging.ModuleLogger(c.loggerProvider, "sitemap")),
	)
	return nil
}

func (c *Container) configureMedia(ctx context.Context) error {
	mediaCfg := c.Config.Media
	var backend media.Backend
	switch mediaCfg.NormalizedBackend() {
	case runtimeconfig.MediaBackendLocal:
		local, err := media.NewLocalBackend(mediaCfg.Root, mediaCfg.BaseURL)
		if err != nil {
			return err
		}
		backend = local
	case runtimeconfig.MediaBackendS3:
		s3Cfg := media.S3Config{
			Bucket:          mediaCfg.S3.Bucket,
			Region:          mediaCfg.S3.Region,
			Endpoint:        mediaCfg.S3.Endpoint,
			AccessKeyID:     mediaCfg.S3.AccessKeyID,
			SecretAccessKey: mediaCfg.S3.SecretAccessKey,
			PublicBaseURL:   mediaCfg.BaseURL,
		}
		client := c.s3Client
		if client == nil {
			built, err := media.NewS3Client(ctx, s3Cfg)
			if err != nil {
				return err
			}
			client = built
		}
		s3Backend, err := media.NewS3Backend(client, s3Cfg)
		if err != nil {
			return err
		}
		backend = s3Backend
	default:
		backend = media.NewMemoryBackend(mediaCfg.BaseURL)
	}

	var repo media.Repository = media.NewMemoryRepository()
	if c.bunDB != nil {
		repo = media.NewBunRepository(c.bunDB)
	}
	c.mediaStore = media.NewStore(backend, repo,
		media.WithLogger(logging.ModuleLogger(c.loggerProvider, "media")),
		media.WithKeyPrefix(mediaCfg.KeyPrefix),
		media.WithClock(c.clock),
	)
	return nil
}

func (c *Container) configureForms(context.Context) error {
	formsLogger := logging.FormsLogger(c.loggerProvider)

	var (
		formRepo       forms.FormRepository       = forms.NewMemoryFormRepository()
		submissionRepo forms.SubmissionRepository = forms.NewMemorySubmissionRepository()
	)
	if c.bunDB != nil {
		formRepo = forms.NewBunFormRepository(c.bunDB)
		submissionRepo = forms.NewBunSubmissionRepository(c.bunDB)
	}
	c.formSvc = forms.NewService(formRepo, c.locales,
		forms.WithServiceLogger(formsLogger),
		forms.WithServiceClock(c.clock),
	)

	limitCfg := ratelimit.Config{Window: c.Config.RateLimit.Window, Max: c.Config.RateLimit.Max}
	if c.redis != nil {
		c.limiter = ratelimit.NewRedisLimiter(c.redis, limitCfg, c.Config.Cache.Redis.Prefix)
	} else {
		c.limiter = ratelimit.NewMemoryLimiter(limitCfg, ratelimit.WithClock(c.clock))
	}

	opts := []forms.PipelineOption{
		forms.WithLimiter(c.limiter),
		forms.WithMediaStore(c.mediaStore),
		forms.WithPipelineLogger(formsLogger),
		forms.WithPipelineClock(c.clock),
	}
	if c.Config.Forms.StripMarkup {
		opts = append(opts, forms.WithMarkupStripping())
	}
	if c.Config.Forms.SniffContent {
		opts = append(opts, forms.WithContentSniffing())
	}
	c.pipeline = forms.NewPipeline(c.formSvc, submissionRepo, c.locales, opts...)
	return nil
}

func (c *Container) configureMarkdown(context.Context) error {
	mdCfg := c.Config.Markdown
	if !mdCfg.Enabled {
		return nil
	}
	svc, err := markdown.NewService(markdown.Config{
		BasePath:  mdCfg.ContentDir,
		Pattern:   mdCfg.Pattern,
		Recursive: mdCfg.Recursive,
		Parser:    mdCfg.Parser,
		FS:        c.markdownFS,
	}, c.documentSvc, c.locales, markdown.WithLogger(logging.MarkdownLogger(c.loggerProvider)))
	if err != nil {
		return err
	}
	c.markdownSvc = svc
	return nil
}

func (c *Container) configureCommands(context.Context) error {
	deps := sitecmd.Dependencies{
		Routes:    c.routeCache,
		Tags:      c.store,
		Publisher: c.documentSvc,
		Pinger:    c.documentSvc,
		Clock:     c.clock,
	}
	if c.markdownSvc != nil {
		deps.Markdown = c.markdownSvc
	}

	c.dispatch = newDispatchRegistry(c.Config.Commands.Retries)
	set, err := sitecmd.RegisterSiteCommands(c.dispatch, deps, c.loggerProvider,
		sitecmd.WithTimeout(c.Config.Commands.Timeout))
	if err != nil {
		return err
	}
	c.commands = set
	return nil
}

func (c *Container) configureScheduler(context.Context) error {
	schedCfg := c.Config.Scheduler
	if !schedCfg.Enabled {
		return nil
	}
	loc, err := schedCfg.LoadLocation()
	if err != nil {
		return err
	}
	s := scheduler.New(
		scheduler.WithLogger(logging.SchedulerLogger(c.loggerProvider)),
		scheduler.WithJobTimeout(schedCfg.JobTimeout),
		scheduler.WithLocation(loc),
	)
	if err := scheduler.RegisterJobs(s, c.commands, c.locales.HomePaths(), schedCfg.Jobs); err != nil {
		return err
	}
	c.scheduler = s
	return nil
}

func (c *Container) configureHTTP(context.Context) error {
	siteCfg := c.Config.Site
	c.api = sitehttp.NewSiteAPI(
		sitehttp.WithLocales(c.locales),
		sitehttp.WithSite(c.site),
		sitehttp.WithLister(c.documentSvc),
		sitehttp.WithLocalizer(c.localizer),
		sitehttp.WithSubmitter(c.pipeline),
		sitehttp.WithSitemap(c.sitemap),
		sitehttp.WithRouteCache(c.routeCache),
		sitehttp.WithCommands(c.commands),
		sitehttp.WithCronSecret(siteCfg.CronSecret),
		sitehttp.WithPreviewSecret(siteCfg.PreviewSecret, siteCfg.SecureCookies),
		sitehttp.WithRewrites(siteCfg.Rewrites),
		sitehttp.WithRedirectHosts(siteCfg.RedirectHosts),
		sitehttp.WithMaxBodyBytes(c.Config.Server.MaxBodyBytes),
		sitehttp.WithLogger(logging.HTTPLogger(c.loggerProvider)),
		sitehttp.WithClock(c.clock),
	)
	return nil
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

func (c *Container) Locales() *i18n.Registry { return c.locales }

// BunDB returns the database handle, nil when running on memory repositories.
func (c *Container) BunDB() *bun.DB { return c.bunDB }

func (c *Container) Store() cache.Store { return c.store }

func (c *Container) RouteCache() *revalidate.RouteCache { return c.routeCache }

func (c *Container) DocumentService() documents.Service { return c.documentSvc }

func (c *Container) Site() *resolver.Site { return c.site }

func (c *Container) MediaStore() media.Store { return c.mediaStore }

func (c *Container) FormService() forms.Service { return c.formSvc }

func (c *Container) FormPipeline() *forms.Pipeline { return c.pipeline }

func (c *Container) Sitemap() *sitemap.Builder { return c.sitemap }

// MarkdownService is nil unless markdown import is enabled.
func (c *Container) MarkdownService() *markdown.Service { return c.markdownSvc }

func (c *Container) Commands() *sitecmd.HandlerSet { return c.commands }

// Scheduler is nil when the scheduler is disabled.
func (c *Container) Scheduler() *scheduler.Scheduler { return c.scheduler }

func (c *Container) SiteAPI() *sitehttp.SiteAPI { return c.api }

// Close stops the scheduler, drops dispatcher subscriptions and closes the
// connections the container opened itself.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.scheduler != nil {
		if err := c.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.dispatch != nil {
		c.dispatch.Close()
	}
	if c.routeCache != nil {
		c.routeCache.Wait()
	}
	if c.redis != nil && c.ownsRDB {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.bunDB != nil && c.ownsDB {
		if err := c.bunDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
