package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
	case errors.As(err, &conflict):
		c.JSON(http.StatusBadRequest, gin.H{"errors": map[string][]string{conflict.Field: {conflict.Message}}})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// respondBindError reports a request body that failed to bind or validate.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": validation.FieldErrors(err)})
}
