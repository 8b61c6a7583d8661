package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"nutrilens/internal/analysis"
	"nutrilens/internal/app"
	"nutrilens/internal/auth"
	"nutrilens/internal/foodlog"
	"nutrilens/internal/user"

	"github.com/gin-gonic/gin"
)

var errUploadTooLarge = fmt.Errorf("image is larger than %d MiB", maxUploadBytes>>20)

func respondUploadError(c *gin.Context, err error) {
	if errors.Is(err, errUploadTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "image is required: " + err.Error()})
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var failure *analysis.Failure
	switch {
	case errors.As(err, &failure):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Meal analysis failed",
			"reason": failure.Reason,
			"raw":    failure.Raw,
		})
	case errors.Is(err, user.ErrValidation), errors.Is(err, user.ErrPasswordMismatch), errors.Is(err, app.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, foodlog.ErrStore):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Food log storage unavailable"})
	default:
		log.Printf("Unhandled error on %s: %v", c.Request.URL.Path, err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
