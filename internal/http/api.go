package http

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"

	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
	"github.com/goliatone/go-sitecms/internal/forms"
	"github.com/goliatone/go-sitecms/internal/ratelimit"
	"github.com/goliatone/go-sitecms/internal/routes"
)

var errNotConfigured = errors.New("http: endpoint not configured")

func (api *SiteAPI) cron(c *gin.Context) {
	if api.cronSecret != "" && !secretMatches(c.GetHeader("Authorization"), "Bearer "+api.cronSecret) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}
	if api.revalidator == nil {
		writeError(c, api.logger, errNotConfigured)
		return
	}

	paths := api.locales.HomePaths()
	if err := api.revalidator.Execute(c.Request.Context(), sitecmd.RevalidatePathsCommand{Paths: paths}); err != nil {
		writeError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"revalidated": len(paths),
		"paths":       paths,
		"timestamp":   api.timestamp(),
	})
}

// keepWarm always answers ok; a failed ping is only logged.
func (api *SiteAPI) keepWarm(c *gin.Context) {
	if api.warmer != nil {
		if err := api.warmer.Execute(c.Request.Context(), sitecmd.KeepWarmCommand{}); err != nil {
			api.logger.Warn("http.keep_warm.failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"message":   "Function warmed up",
		"timestamp": api.timestamp(),
	})
}

func (api *SiteAPI) localizedRoutes(c *gin.Context) {
	if api.localizer == nil {
		writeError(c, api.logger, errNotConfigured)
		return
	}
	urls, err := api.localizer.LocalizedURLs(c.Request.Context(), routes.Request{
		Locale:          c.Query("locale"),
		CurrentPage:     c.Query("currentPage"),
		CurrentPageSlug: c.Query("currentPageSlug"),
	})
	if err != nil {
		writeError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"localizedUrls": urls}})
}

func (api *SiteAPI) submitForm(c *gin.Context) {
	if api.submitter == nil {
		writeSubmissionError(c, api.logger, errNotConfigured)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxBodyBytes)

	submission, err := api.submitter.Submit(c.Request.Context(), forms.Request{
		ClientKey:   ratelimit.ClientKey(c.Request.Header),
		Locale:      c.Query("locale"),
		ContentType: c.ContentType(),
		Body:        c.Request.Body,
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = goerrors.New("Request body too large", goerrors.CategoryBadInput).
				WithTextCode("BODY_TOO_LARGE")
		}
		writeSubmissionError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": submission})
}

func (api *SiteAPI) sitemapXML(c *gin.Context) {
	if api.sitemap == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	body, err := api.sitemap.XML(c.Request.Context())
	if err != nil {
		writeError(c, api.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func secretMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
