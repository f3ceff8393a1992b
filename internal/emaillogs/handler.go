package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/response"
)

// Lister reads recent email logs.
type Lister interface {
	ListRecent(ctx context.Context, emailType string, limit int) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo Lister
}

// NewHandler creates an email logs handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /emails?type=&limit=. Returns email logs, newest first.
func (h *Handler) List(c *gin.Context) {
	limit := response.Limit(c, 100, 500)
	logs, err := h.repo.ListRecent(c.Request.Context(), c.Query("type"), limit)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.List(c, logs, limit)
}
