package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/database"
)

// newTestRepository connects to DATABASE_URL and applies migrations. Tests skip without it.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	return NewRepository(pool)
}

func testCourse(id string) Course {
	return Course{
		Summary: models.CourseSummary{
			ID:            id,
			Title:         "Repository Course",
			Instructor:    "Ada",
			DurationLabel: "1h",
			StudentCount:  12,
			Level:         models.LevelIntermediate,
			Description:   "Stored course.",
			Skills:        []string{"sql", "go"},
		},
		Lessons: []models.Lesson{
			{ID: "z-first", Title: "First", DurationLabel: "10:00"},
			{ID: "a-second", Title: "Second", DurationLabel: "05:00", Completed: true},
			{ID: "m-third", Title: "Third", DurationLabel: "07:30"},
		},
		Content: models.CourseContent{
			Overview: "Overview text.",
			Resources: []models.Resource{
				{ID: "slides", Title: "Slides", Kind: models.ResourceKindSlides, Size: "2 MB", S3Key: "resources/" + id + "/slides.pdf"},
				{ID: "code", Title: "Code", Kind: models.ResourceKindCode},
			},
		},
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	id := "repo-test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = repo.pool.Exec(context.Background(), `DELETE FROM courses WHERE id = $1`, id)
	})

	require.NoError(t, repo.Upsert(ctx, 900, testCourse(id)))

	course, err := repo.GetCourse(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Repository Course", course.Title)
	assert.Equal(t, models.LevelIntermediate, course.Level)
	assert.Equal(t, []string{"sql", "go"}, course.Skills)

	lessons, err := repo.GetLessons(ctx, id)
	require.NoError(t, err)
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"z-first", "a-second", "m-third"}, ids)
	assert.True(t, lessons[1].Completed)

	content, err := repo.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, content.CourseID)
	assert.Equal(t, "Overview text.", content.Overview)
	require.Len(t, content.Resources, 2)
	assert.Equal(t, "slides", content.Resources[0].ID)
	assert.Equal(t, "resources/"+id+"/slides.pdf", content.Resources[0].S3Key)
	assert.Empty(t, content.Discussion)

	list, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	found := false
	for _, c := range list {
		found = found || c.ID == id
	}
	assert.True(t, found)
}

func TestRepositoryUpsertReplacesChildren(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	id := "repo-test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = repo.pool.Exec(context.Background(), `DELETE FROM courses WHERE id = $1`, id)
	})

	require.NoError(t, repo.Upsert(ctx, 900, testCourse(id)))
	updated := testCourse(id)
	updated.Summary.Title = "Renamed"
	updated.Lessons = updated.Lessons[:1]
	updated.Content.Resources = nil
	require.NoError(t, repo.Upsert(ctx, 900, updated))

	course, err := repo.GetCourse(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", course.Title)
	lessons, err := repo.GetLessons(ctx, id)
	require.NoError(t, err)
	assert.Len(t, lessons, 1)
	content, err := repo.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, content.Resources)
}

func TestRepositoryUnknownCourse(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	id := "repo-missing-" + uuid.NewString()

	_, err := repo.GetCourse(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetLessons(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetContent(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
