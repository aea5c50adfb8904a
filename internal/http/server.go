package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	command "github.com/goliatone/go-command"

	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
	"github.com/goliatone/go-sitecms/internal/documents"
	"github.com/goliatone/go-sitecms/internal/forms"
	"github.com/goliatone/go-sitecms/internal/i18n"
	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/internal/resolver"
	"github.com/goliatone/go-sitecms/internal/revalidate"
	"github.com/goliatone/go-sitecms/internal/routes"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// DefaultMaxBodyBytes caps form submission bodies.
const DefaultMaxBodyBytes int64 = 124 << 20

// Site resolves the documents behind site routes.
type Site interface {
	Resolve(ctx context.Context, query resolver.Query) (*documents.Document, error)
	ResolvePath(ctx context.Context, locale, path string, draft bool) (*documents.Document, error)
}

// Lister lists documents for the blog index.
type Lister interface {
	List(ctx context.Context, query documents.Query) ([]*documents.Document, error)
}

type Localizer interface {
	LocalizedURLs(ctx context.Context, req routes.Request) (map[string]string, error)
}

type Submitter interface {
	Submit(ctx context.Context, req forms.Request) (*forms.Submission, error)
}

type Sitemap interface {
	XML(ctx context.Context) ([]byte, error)
}

// SiteAPI registers the public site on a gin engine.
type SiteAPI struct {
	locales       *i18n.Registry
	site          Site
	lister        Lister
	localizer     Localizer
	submitter     Submitter
	sitemap       Sitemap
	routes        *revalidate.RouteCache
	revalidator   command.Commander[sitecmd.RevalidatePathsCommand]
	warmer        command.Commander[sitecmd.KeepWarmCommand]
	cronSecret    string
	previewSecret string
	secureCookie  bool
	rewrites      map[string]string
	redirectHosts map[string]string
	maxBodyBytes  int64
	logger        interfaces.Logger
	now           func() time.Time
}

// SiteOption mutates the SiteAPI configuration.
type SiteOption func(*SiteAPI)

// NewSiteAPI constructs a SiteAPI. Locales default to i18n.DefaultConfig and
// routes are cached in a fresh RouteCache unless overridden.
func NewSiteAPI(opts ...SiteOption) *SiteAPI {
	api := &SiteAPI{
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       logging.NoOp(),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	if api.locales == nil {
		api.locales = i18n.MustNewRegistry(i18n.DefaultConfig())
	}
	if api.routes == nil {
		api.routes = revalidate.NewRouteCache(revalidate.WithRouteLogger(api.logger))
	}
	return api
}

func WithLocales(locales *i18n.Registry) SiteOption {
	return func(api *SiteAPI) {
		if locales != nil {
			api.locales = locales
		}
	}
}

func WithSite(site Site) SiteOption {
	return func(api *SiteAPI) {
		api.site = site
	}
}

func WithLister(lister Lister) SiteOption {
	return func(api *SiteAPI) {
		api.lister = lister
	}
}

func WithLocalizer(localizer Localizer) SiteOption {
	return func(api *SiteAPI) {
		api.localizer = localizer
	}
}

func WithSubmitter(submitter Submitter) SiteOption {
	return func(api *SiteAPI) {
		api.submitter = submitter
	}
}

func WithSitemap(sitemap Sitemap) SiteOption {
	return func(api *SiteAPI) {
		api.sitemap = sitemap
	}
}

func WithRouteCache(cache *revalidate.RouteCache) SiteOption {
	return func(api *SiteAPI) {
		if cache != nil {
			api.routes = cache
		}
	}
}

// WithCommands wires the handlers behind /api/cron and /api/keep-warm.
func WithCommands(set *sitecmd.HandlerSet) SiteOption {
	return func(api *SiteAPI) {
		if set == nil {
			return
		}
		if set.Revalidate != nil {
			api.revalidator = set.Revalidate
		}
		if set.KeepWarm != nil {
			api.warmer = set.KeepWarm
		}
	}
}

// WithCronSecret requires "Authorization: Bearer <secret>" on /api/cron.
func WithCronSecret(secret string) SiteOption {
	return func(api *SiteAPI) {
		api.cronSecret = strings.TrimSpace(secret)
	}
}

// WithPreviewSecret enables draft mode for requests presenting secret.
func WithPreviewSecret(secret string, secureCookie bool) SiteOption {
	return func(api *SiteAPI) {
		api.previewSecret = strings.TrimSpace(secret)
		api.secureCookie = secureCookie
	}
}

// WithRewrites maps request paths to the path they are served as.
func WithRewrites(rewrites map[string]string) SiteOption {
	return func(api *SiteAPI) {
		api.rewrites = make(map[string]string, len(rewrites))
		for source, destination := range rewrites {
			api.rewrites[cleanPath(source)] = cleanPath(destination)
		}
	}
}

// WithRedirectHosts permanently redirects requests for a host to the base
// URL it maps to, keeping path and query.
func WithRedirectHosts(hosts map[string]string) SiteOption {
	return func(api *SiteAPI) {
		api.redirectHosts = make(map[string]string, len(hosts))
		for host, target := range hosts {
			api.redirectHosts[strings.ToLower(strings.TrimSpace(host))] = strings.TrimRight(target, "/")
		}
	}
}

func WithMaxBodyBytes(limit int64) SiteOption {
	return func(api *SiteAPI) {
		if limit > 0 {
			api.maxBodyBytes = limit
		}
	}
}

func WithLogger(logger interfaces.Logger) SiteOption {
	return func(api *SiteAPI) {
		if logger != nil {
			api.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) SiteOption {
	return func(api *SiteAPI) {
		if clock != nil {
			api.now = clock
		}
	}
}

// Register mounts the API routes and the site fallback on engine.
func (api *SiteAPI) Register(engine *gin.Engine) {
	if engine == nil {
		return
	}
	group := engine.Group("/api")
	group.GET("/cron", api.cron)
	group.GET("/keep-warm", api.keepWarm)
	group.GET("/localized-routes", api.localizedRoutes)
	group.POST("/forms/submissions", api.submitForm)

	engine.GET("/sitemap.xml", api.sitemapXML)
	engine.NoRoute(api.serveSite)
}

// Engine builds a gin engine with recovery, request logging and every route
// registered.
func (api *SiteAPI) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(recovery(api.logger), requestLogger(api.logger))
	api.Register(engine)
	return engine
}

// Handler wraps Engine with host redirects and rewrites, which must run before
// gin matches a route.
func (api *SiteAPI) Handler() http.Handler {
	return api.wrap(api.Engine())
}

// RouteCache exposes the cache site routes are served from.
func (api *SiteAPI) RouteCache() *revalidate.RouteCache {
	return api.routes
}

func (api *SiteAPI) timestamp() string {
	return api.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
