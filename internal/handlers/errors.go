package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"roomloop/internal/services"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindStateConflict, services.KindCapacity:
		return http.StatusBadRequest
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a domain error with its message and code. Anything else is logged
// and answered with the generic fallback.
func writeError(c *gin.Context, err error, fallback string) {
	var domain *services.Error
	if errors.As(err, &domain) && domain.Kind != services.KindInternal {
		c.JSON(statusFor(domain.Kind), gin.H{"error": domain.Message, "code": domain.Code})
		return
	}
	log.Printf("handlers: %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
