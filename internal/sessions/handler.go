package sessions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/playback"
	"github.com/treppan-learn/backend/pkg/response"
)

// OpenRequestBody is the body for POST /sessions.
type OpenRequestBody struct {
	CourseID string `json:"course_id"`
	Viewport string `json:"viewport"`
	Progress *int   `json:"progress"`
}

// ActionRequest is the body for POST /sessions/:id/actions.
type ActionRequest struct {
	Action   string `json:"action" binding:"required"`
	CourseID string `json:"course_id"`
	LessonID string `json:"lesson_id"`
	Value    int    `json:"value"`
	Viewport string `json:"viewport"`
}

// Handler handles playback session HTTP endpoints.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates a session handler.
func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, logger: logger}
}

// Open handles POST /sessions.
func (h *Handler) Open(c *gin.Context) {
	var req OpenRequestBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	_, snap, err := h.registry.Open(c.Request.Context(), OpenRequest{
		CourseID: req.CourseID,
		Viewport: playback.ParseViewport(req.Viewport),
		Progress: req.Progress,
	})
	if err != nil {
		h.logger.Error("open session failed", zap.String("course_id", req.CourseID), zap.Error(err))
		response.ServiceUnavailable(c, "catalog unavailable")
		return
	}
	response.Created(c, snap)
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	ctrl, err := h.registry.Get(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	snap, err := ctrl.Snapshot(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, snap)
}

// Act handles POST /sessions/:id/actions.
func (h *Handler) Act(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	snap, err := h.registry.Apply(c.Request.Context(), id, Command{
		Action:   Action(req.Action),
		CourseID: req.CourseID,
		LessonID: req.LessonID,
		Value:    req.Value,
		Viewport: req.Viewport,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, snap)
}

// Close handles DELETE /sessions/:id.
func (h *Handler) Close(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.registry.Close(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrSessionClosed):
		response.Gone(c, "session closed")
	case errors.Is(err, ErrUnknownAction):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("session request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "failed to apply action")
	}
}
