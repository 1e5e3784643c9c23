package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"namibialove.app/messaging/internal/service"
)

// writeServiceError maps service errors to responses. Validation errors
// carry their message; anything else is reported with fallback only.
func writeServiceError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, service.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
