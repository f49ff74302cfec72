package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/provider"
)

// statusFor maps the application error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsProvider(err):
		return http.StatusBadGateway
	case errors.Is(err, provider.ErrDisabled):
		return http.StatusServiceUnavailable
	case apperr.IsPersistence(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Server side failures are
// logged and their details hidden.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}

	switch {
	case errors.Is(err, provider.ErrDisabled):
		c.JSON(status, gin.H{"error": "Provider is not configured"})
	case status == http.StatusServiceUnavailable:
		c.JSON(status, gin.H{"error": "Storage unavailable"})
	case status == http.StatusInternalServerError:
		c.JSON(status, gin.H{"error": "Internal server error"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
