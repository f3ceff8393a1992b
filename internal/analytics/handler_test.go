package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/internal/sessionlog"
)

type fakeStats struct {
	rows []models.LessonStats
	err  error
}

func (f fakeStats) ListByCourse(context.Context, string) ([]models.LessonStats, error) {
	return f.rows, f.err
}

type fakeWatchTime struct{ agg sessionlog.WatchTimeAggregates }

func (f fakeWatchTime) GetWatchTimeAggregates(context.Context, string) (*sessionlog.WatchTimeAggregates, error) {
	return &f.agg, nil
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/courses/:id/analytics", h.GetByCourse)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetByCourse(t *testing.T) {
	stats := fakeStats{rows: []models.LessonStats{
		{CourseID: "llm-systems", LessonID: "lesson-2", Starts: 4, Completions: 1},
		{CourseID: "llm-systems", LessonID: "lesson-1", Starts: 10, Completions: 5},
	}}
	h := NewHandler(catalog.NewDefaultFixtureProvider(), stats, fakeWatchTime{sessionlog.WatchTimeAggregates{TotalWatchSeconds: 900, Sessions: 3}}, nil)

	w := serve(h, "/courses/llm-systems/analytics")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data SummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	got := body.Data
	assert.Equal(t, int64(300), got.AvgWatchSeconds)
	require.Len(t, got.Lessons, 4)
	assert.Equal(t, "lesson-1", got.Lessons[0].LessonID)
	assert.InDelta(t, 0.5, got.Lessons[0].CompletionRate, 1e-9)
	assert.InDelta(t, 0.25, got.Lessons[1].CompletionRate, 1e-9)
	assert.Zero(t, got.Lessons[3].Starts)
}

func TestGetByCourseErrors(t *testing.T) {
	h := NewHandler(catalog.NewDefaultFixtureProvider(), fakeStats{}, fakeWatchTime{}, nil)
	assert.Equal(t, http.StatusNotFound, serve(h, "/courses/nope/analytics").Code)

	h = NewHandler(catalog.NewDefaultFixtureProvider(), fakeStats{err: errors.New("db down")}, fakeWatchTime{}, nil)
	assert.Equal(t, http.StatusInternalServerError, serve(h, "/courses/llm-systems/analytics").Code)
}

func TestSummarizeWithoutSessions(t *testing.T) {
	out := Summarize("c", []models.Lesson{{ID: "a"}}, nil, &sessionlog.WatchTimeAggregates{})
	assert.Zero(t, out.AvgWatchSeconds)
	assert.Equal(t, []LessonRow{{LessonID: "a"}}, out.Lessons)
}
