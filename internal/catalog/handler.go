package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/response"
)

// ResourcePresigner issues download URLs for resource objects.
type ResourcePresigner interface {
	PresignResourceDownload(ctx context.Context, key string) (string, time.Duration, error)
}

// CourseDetail is the body of GET /courses/:id.
type CourseDetail struct {
	Course  *models.CourseSummary `json:"course"`
	Summary string                `json:"summary"`
	Lessons []models.Lesson       `json:"lessons"`
	Content *models.CourseContent `json:"content"`
}

// LessonsResponse is the body of GET /courses/:id/lessons.
type LessonsResponse struct {
	CourseID string          `json:"course_id"`
	Summary  string          `json:"summary"`
	Lessons  []models.Lesson `json:"lessons"`
}

// Handler handles catalog HTTP endpoints.
type Handler struct {
	provider        Provider
	defaultCourseID string
	presigner       ResourcePresigner
	logger          *zap.Logger
}

// NewHandler creates a catalog handler. presigner may be nil when S3 is not configured.
func NewHandler(provider Provider, defaultCourseID string, presigner ResourcePresigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCourseID == "" {
		defaultCourseID = DefaultCourseID
	}
	return &Handler{provider: provider, defaultCourseID: defaultCourseID, presigner: presigner, logger: logger}
}

// List handles GET /courses.
func (h *Handler) List(c *gin.Context) {
	list, err := h.provider.ListCourses(c.Request.Context())
	if err != nil {
		h.logger.Error("list courses failed", zap.Error(err))
		response.Internal(c, "failed to list courses")
		return
	}
	response.OK(c, list)
}

// Get handles GET /courses/:id. Unknown ids resolve to the default course.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	courseID, lessons, err := ResolveLessons(ctx, h.provider, c.Param("id"), h.defaultCourseID)
	if err != nil {
		h.logger.Error("resolve course failed", zap.String("course_id", c.Param("id")), zap.Error(err))
		response.ServiceUnavailable(c, "catalog unavailable")
		return
	}
	course, err := h.provider.GetCourse(ctx, courseID)
	if err != nil {
		h.logger.Error("get course failed", zap.String("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to load course")
		return
	}
	content, err := h.provider.GetContent(ctx, courseID)
	if err != nil {
		h.logger.Error("get course content failed", zap.String("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to load course")
		return
	}
	response.OK(c, CourseDetail{
		Course:  course,
		Summary: CourseSummaryLine(lessons),
		Lessons: lessons,
		Content: content,
	})
}

// Lessons handles GET /courses/:id/lessons. Unknown ids resolve to the default course.
func (h *Handler) Lessons(c *gin.Context) {
	courseID, lessons, err := ResolveLessons(c.Request.Context(), h.provider, c.Param("id"), h.defaultCourseID)
	if err != nil {
		h.logger.Error("resolve lessons failed", zap.String("course_id", c.Param("id")), zap.Error(err))
		response.ServiceUnavailable(c, "catalog unavailable")
		return
	}
	response.OK(c, LessonsResponse{CourseID: courseID, Summary: CourseSummaryLine(lessons), Lessons: lessons})
}

// ResourceDownloadURL handles GET /courses/:id/resources/:resourceId/download-url.
// An unknown course id resolves to the default course, as for the other catalog routes.
func (h *Handler) ResourceDownloadURL(c *gin.Context) {
	ctx := c.Request.Context()
	course, err := ResolveCourse(ctx, h.provider, c.Param("id"), h.defaultCourseID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "course not found")
		return
	}
	if err != nil {
		h.logger.Error("resolve course failed", zap.String("course_id", c.Param("id")), zap.Error(err))
		response.Internal(c, "failed to load course")
		return
	}
	courseID := course.ID
	content, err := h.provider.GetContent(ctx, courseID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "course not found")
		return
	}
	if err != nil {
		h.logger.Error("get course content failed", zap.String("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to load course")
		return
	}
	res, ok := content.FindResource(c.Param("resourceId"))
	if !ok || res.S3Key == "" {
		response.NotFound(c, "resource not found")
		return
	}
	if h.presigner == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	url, expire, err := h.presigner.PresignResourceDownload(ctx, res.S3Key)
	if err != nil {
		h.logger.Error("presign resource download failed", zap.Error(err), zap.String("resource_id", res.ID))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(expire.Seconds())})
}
