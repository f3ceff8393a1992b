package analytics

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/internal/sessionlog"
	"github.com/treppan-learn/backend/pkg/response"
)

// StatsReader reads lesson telemetry.
type StatsReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.LessonStats, error)
}

// WatchTimeReader reads viewer session aggregates.
type WatchTimeReader interface {
	GetWatchTimeAggregates(ctx context.Context, courseID string) (*sessionlog.WatchTimeAggregates, error)
}

// Handler handles GET /courses/:id/analytics.
type Handler struct {
	provider  catalog.Provider
	stats     StatsReader
	watchTime WatchTimeReader
	logger    *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(provider catalog.Provider, stats StatsReader, watchTime WatchTimeReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{provider: provider, stats: stats, watchTime: watchTime, logger: logger}
}

// LessonRow is one lesson of the analytics response, in sequence order.
type LessonRow struct {
	LessonID       string  `json:"lesson_id"`
	Title          string  `json:"title"`
	Starts         int64   `json:"starts"`
	Completions    int64   `json:"completions"`
	CompletionRate float64 `json:"completion_rate"`
}

// SummaryResponse is the JSON shape for course analytics.
type SummaryResponse struct {
	CourseID          string      `json:"course_id"`
	Sessions          int         `json:"sessions"`
	TotalWatchSeconds int64       `json:"total_watch_seconds"`
	AvgWatchSeconds   int64       `json:"avg_watch_seconds"`
	Lessons           []LessonRow `json:"lessons"`
}

// GetByCourse handles GET /courses/:id/analytics. Unlike the catalog routes there is no fallback.
func (h *Handler) GetByCourse(c *gin.Context) {
	ctx := c.Request.Context()
	courseID := c.Param("id")

	lessons, err := h.provider.GetLessons(ctx, courseID)
	if errors.Is(err, catalog.ErrNotFound) {
		response.NotFound(c, "course not found")
		return
	}
	if err != nil {
		h.logger.Error("load lessons failed", zap.String("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to load course")
		return
	}

	stats, err := h.stats.ListByCourse(ctx, courseID)
	if err != nil {
		h.logger.Error("load lesson stats failed", zap.String("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to load lesson stats")
		return
	}
	agg, err := h.watchTime.GetWatchTimeAggregates(ctx, courseID)
	if err != nil {
		h.logger.Error("load watch time failed", zap.String("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to load watch time")
		return
	}

	response.OK(c, Summarize(courseID, lessons, stats, agg))
}

// Summarize joins lesson stats onto the lesson sequence. Lessons without stats report zeros.
func Summarize(courseID string, lessons []models.Lesson, stats []models.LessonStats, agg *sessionlog.WatchTimeAggregates) SummaryResponse {
	byLesson := make(map[string]models.LessonStats, len(stats))
	for _, s := range stats {
		byLesson[s.LessonID] = s
	}
	out := SummaryResponse{CourseID: courseID, Lessons: make([]LessonRow, 0, len(lessons))}
	if agg != nil {
		out.Sessions = agg.Sessions
		out.TotalWatchSeconds = agg.TotalWatchSeconds
		if agg.Sessions > 0 {
			out.AvgWatchSeconds = agg.TotalWatchSeconds / int64(agg.Sessions)
		}
	}
	for _, l := range lessons {
		s := byLesson[l.ID]
		row := LessonRow{LessonID: l.ID, Title: l.Title, Starts: s.Starts, Completions: s.Completions}
		if s.Starts > 0 {
			row.CompletionRate = float64(s.Completions) / float64(s.Starts)
		}
		out.Lessons = append(out.Lessons, row)
	}
	return out
}
