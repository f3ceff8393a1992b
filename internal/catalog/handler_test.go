package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPresigner struct {
	key string
	err error
}

func (s *stubPresigner) PresignResourceDownload(_ context.Context, key string) (string, time.Duration, error) {
	s.key = key
	if s.err != nil {
		return "", 0, s.err
	}
	return "https://signed.example/" + key, 10 * time.Minute, nil
}

func newCatalogRouter(presigner ResourcePresigner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewDefaultFixtureProvider(), "", presigner, nil)
	r := gin.New()
	r.GET("/courses", h.List)
	r.GET("/courses/:id", h.Get)
	r.GET("/courses/:id/lessons", h.Lessons)
	r.GET("/courses/:id/resources/:resourceId/download-url", h.ResourceDownloadURL)
	return r
}

func getJSON(t *testing.T, r http.Handler, path string, dst interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if dst != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
	}
	return w.Code
}

func TestHandlerListCourses(t *testing.T) {
	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			ID    string `json:"id"`
			Level string `json:"level"`
		} `json:"data"`
	}
	code := getJSON(t, newCatalogRouter(nil), "/courses", &body)

	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Data, 3)
	if body.Data[0].ID != DefaultCourseID {
		t.Fatalf("first course: want=%q got=%q", DefaultCourseID, body.Data[0].ID)
	}
	assert.Equal(t, "Beginner", body.Data[0].Level)
}

func TestHandlerLessonsFallsBackToDefault(t *testing.T) {
	var body struct {
		Data LessonsResponse `json:"data"`
	}
	code := getJSON(t, newCatalogRouter(nil), "/courses/unknown-course/lessons", &body)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, DefaultCourseID, body.Data.CourseID)
	assert.Len(t, body.Data.Lessons, 6)
	assert.Equal(t, "6 lessons • 2h 17m total", body.Data.Summary)
}

func TestHandlerGetCourseDetail(t *testing.T) {
	var body struct {
		Data struct {
			Course struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"course"`
			Content struct {
				Overview  string `json:"overview"`
				Resources []struct {
					ID    string `json:"id"`
					S3Key string `json:"s3_key"`
				} `json:"resources"`
			} `json:"content"`
		} `json:"data"`
	}
	code := getJSON(t, newCatalogRouter(nil), "/courses/ai-fundamentals", &body)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AI Fundamentals", body.Data.Course.Title)
	assert.NotEmpty(t, body.Data.Content.Overview)
	require.NotEmpty(t, body.Data.Content.Resources)
	assert.Empty(t, body.Data.Content.Resources[0].S3Key)
}

func TestHandlerResourceDownloadURL(t *testing.T) {
	p := &stubPresigner{}
	var body struct {
		Data struct {
			URL       string `json:"download_url"`
			ExpiresIn int    `json:"expires_in"`
		} `json:"data"`
	}
	code := getJSON(t, newCatalogRouter(p), "/courses/ai-fundamentals/resources/slides/download-url", &body)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "resources/ai-fundamentals/slides.pdf", p.key)
	assert.Equal(t, "https://signed.example/resources/ai-fundamentals/slides.pdf", body.Data.URL)
	assert.Equal(t, 600, body.Data.ExpiresIn)
}

func TestHandlerResourceDownloadURLFallsBackToDefault(t *testing.T) {
	p := &stubPresigner{}
	code := getJSON(t, newCatalogRouter(p), "/courses/nope/resources/slides/download-url", nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "resources/ai-fundamentals/slides.pdf", p.key)

	gin.SetMode(gin.TestMode)
	h := NewHandler(NewFixtureProvider(nil), "missing-default", p, nil)
	r := gin.New()
	r.GET("/courses/:id/resources/:resourceId/download-url", h.ResourceDownloadURL)
	assert.Equal(t, http.StatusNotFound, getJSON(t, r, "/courses/nope/resources/slides/download-url", nil))
}

func TestHandlerResourceDownloadURLErrors(t *testing.T) {
	r := newCatalogRouter(&stubPresigner{err: errors.New("boom")})

	assert.Equal(t, http.StatusNotFound, getJSON(t, r, "/courses/ai-fundamentals/resources/nope/download-url", nil))
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, r, "/courses/ai-fundamentals/resources/slides/download-url", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, newCatalogRouter(nil), "/courses/ai-fundamentals/resources/slides/download-url", nil))
}
