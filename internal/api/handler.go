package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-access-backend/internal/access"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc *access.Service
}

// NewHandler creates a new API handler.
func NewHandler(svc *access.Service) *Handler {
	return &Handler{svc: svc}
}

// statusFor maps a scan error kind to its HTTP status.
func statusFor(kind access.Kind) int {
	switch kind {
	case access.KindAuthentication:
		return http.StatusUnauthorized
	case access.KindAuthorization, access.KindScheduleViolation:
		return http.StatusForbidden
	case access.KindDuplicate:
		return http.StatusConflict
	case access.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := access.KindOf(err)
	c.AbortWithStatusJSON(statusFor(kind), gin.H{
		"error": access.ReasonOf(err),
		"kind":  kind.String(),
	})
}
