package http

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// requestLogger writes one line per request through the site logger.
func requestLogger(logger interfaces.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(started).Milliseconds(),
			"client", c.ClientIP(),
		}
		if cache := c.Writer.Header().Get(cacheHeader); cache != "" {
			fields = append(fields, "cache", cache)
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http.request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http.request", fields...)
		default:
			logger.Info("http.request", fields...)
		}
	}
}

func recovery(logger interfaces.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.WithFields(logger, map[string]any{
			"path": c.Request.URL.Path,
		}).Error("http.request.panic", "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: internalMessage})
	})
}

// wrap applies host redirects, then rewrites, then hands the request to next.
func (api *SiteAPI) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if target, ok := api.redirectFor(r); ok {
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}
		if destination, ok := api.rewrites[cleanPath(r.URL.Path)]; ok {
			api.logger.Debug("http.rewrite", "from", r.URL.Path, "to", destination)
			r = r.Clone(r.Context())
			r.URL.Path = destination
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

func (api *SiteAPI) redirectFor(r *http.Request) (string, bool) {
	if len(api.redirectHosts) == 0 {
		return "", false
	}
	host := strings.ToLower(r.Host)
	if stripped, _, found := strings.Cut(host, ":"); found {
		host = stripped
	}
	base, ok := api.redirectHosts[host]
	if !ok || base == "" {
		return "", false
	}
	target := base + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target, true
}

// cleanPath returns a rooted path without a trailing slash.
func cleanPath(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "/"
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return path.Clean(value)
}
