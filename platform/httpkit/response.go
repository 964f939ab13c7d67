// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"delivery_price_calculator/platform/apperr"
	"delivery_price_calculator/platform/logger"

	"github.com/gin-gonic/gin"
)

const msgInternalError = "internal error"

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// StatusFor returns the HTTP status a domain error kind is reported with.
// Missing records are a client mistake and map to 400.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound, apperr.KindValidation, apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Abort answers with a domain error and stops the handler chain.
func Abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(StatusFor(err.Kind), ErrorResponse{Error: err.Message, Details: err.Details})
}

// HandleError maps domain errors to HTTP responses.
// Internal and untyped errors are logged and answered with a generic 500 so
// store details never reach the client.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, log *logger.Logger, err error) bool {
	if err == nil {
		return false
	}

	domainErr, ok := apperr.As(err)
	status := http.StatusInternalServerError
	if ok {
		status = StatusFor(domainErr.Kind)
	}

	if status == http.StatusInternalServerError {
		if log != nil {
			log.WithContext(c.Request.Context()).HTTPError(c.Request.Method, c.Request.URL.Path, status, err, c.ClientIP())
		}
		c.JSON(status, ErrorResponse{Error: msgInternalError})
		return true
	}

	c.JSON(status, ErrorResponse{
		Error:   domainErr.Message,
		Details: domainErr.Details,
	})
	return true
}
