package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageItem struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// submissionErrors is the body shape the form endpoint replies with on
// failure: {"data":{"errors":[{"message":...}]}}.
type submissionErrors struct {
	Data struct {
		Errors []messageItem `json:"errors"`
	} `json:"data"`
}

const internalMessage = "Internal server error"

// statusFor maps the go-errors category of err to an HTTP status.
func statusFor(err error) int {
	var typed *goerrors.Error
	if !goerrors.As(err, &typed) {
		return http.StatusInternalServerError
	}
	switch typed.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// messageFor returns the top-level client-facing message of err.
func messageFor(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return internalMessage
	}
	var typed *goerrors.Error
	if goerrors.As(err, &typed) && typed.Message != "" {
		return typed.Message
	}
	return err.Error()
}

// messagesFor returns the client-facing messages of err. Internal errors
// collapse to a generic message.
func messagesFor(err error, status int) []messageItem {
	if status >= http.StatusInternalServerError {
		return []messageItem{{Message: internalMessage}}
	}
	var typed *goerrors.Error
	if !goerrors.As(err, &typed) {
		return []messageItem{{Message: err.Error()}}
	}
	if len(typed.ValidationErrors) > 0 {
		items := make([]messageItem, 0, len(typed.ValidationErrors))
		for _, fieldErr := range typed.ValidationErrors {
			items = append(items, messageItem{Message: fieldErr.Message, Field: fieldErr.Field})
		}
		return items
	}
	return []messageItem{{Message: typed.Message}}
}

// retryAfter reads the retry delay a rate limit error carries.
func retryAfter(err error) (int, bool) {
	var typed *goerrors.Error
	if !goerrors.As(err, &typed) || typed.Category != goerrors.CategoryRateLimit {
		return 0, false
	}
	seconds, ok := typed.Metadata["retry_after"].(int)
	return seconds, ok && seconds > 0
}

func logFailure(logger interfaces.Logger, c *gin.Context, err error, status int) {
	if status >= http.StatusInternalServerError {
		logger.Error("http.request.failed", "path", c.Request.URL.Path, "status", status, "error", err)
		return
	}
	logger.Debug("http.request.rejected", "path", c.Request.URL.Path, "status", status, "error", err)
}

func writeError(c *gin.Context, logger interfaces.Logger, err error) {
	status := statusFor(err)
	logFailure(logger, c, err, status)
	c.AbortWithStatusJSON(status, errorResponse{Error: messageFor(err, status)})
}

func writeSubmissionError(c *gin.Context, logger interfaces.Logger, err error) {
	status := statusFor(err)
	logFailure(logger, c, err, status)
	if seconds, ok := retryAfter(err); ok {
		c.Header("Retry-After", strconv.Itoa(seconds))
	}
	var body submissionErrors
	body.Data.Errors = messagesFor(err, status)
	c.AbortWithStatusJSON(status, body)
}

func parseBoolQuery(value string, defaultValue bool) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return defaultValue
	}
	return parsed
}
