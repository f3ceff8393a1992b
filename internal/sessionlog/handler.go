package sessionlog

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/response"
)

// Lister reads recent viewer sessions.
type Lister interface {
	ListByCourse(ctx context.Context, courseID string, limit int) ([]models.ViewerSessionLog, error)
}

// Handler handles GET /courses/:id/sessions.
type Handler struct {
	repo Lister
}

// NewHandler creates a session log handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// ListByCourse handles GET /courses/:id/sessions (recent viewer sessions with watch time).
func (h *Handler) ListByCourse(c *gin.Context) {
	limit := response.Limit(c, 100, 500)
	list, err := h.repo.ListByCourse(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Internal(c, "failed to list viewer sessions")
		return
	}
	response.List(c, list, limit)
}
