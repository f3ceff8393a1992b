package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treppan-learn/backend/internal/models"
)

func TestBuildViewWide(t *testing.T) {
	s := newSession(t)
	s.AdvanceProgress(23)
	course := &models.CourseSummary{ID: "intro", Title: "Intro"}

	v := BuildView(s, course, nil)

	assert.Equal(t, "Intro", v.CourseTitle)
	assert.Equal(t, ViewportWide, v.Viewport)
	assert.Equal(t, "Lesson 1 of 3", v.Position)
	assert.Equal(t, "23% complete", v.ProgressLabel)
	require.Len(t, v.Lessons, 3)
	assert.Equal(t, "01", v.Lessons[0].Number)
	assert.True(t, v.Lessons[0].Active)
	assert.False(t, v.Lessons[1].Active)
	require.NotNil(t, v.Next)
	assert.Equal(t, "L2", v.Next.ID)
	assert.Equal(t, PanelView{Mode: PanelModeSidebar, Open: true}, v.Panel)
	assert.Equal(t, Tabs(), v.Tabs)
}

func TestBuildViewTabsAreNotShared(t *testing.T) {
	s := newSession(t)
	first := BuildView(s, nil, nil)
	first.Tabs[0] = TabClassmates

	second := BuildView(s, nil, nil)
	assert.Equal(t, TabOverview, second.Tabs[0])
	assert.Equal(t, TabOverview, Tabs()[0])
}

func TestBuildViewHidesNextOnLastLesson(t *testing.T) {
	s := newSession(t)
	s.SelectLesson("L3")

	v := BuildView(s, nil, nil)

	assert.Nil(t, v.Next)
	assert.Equal(t, "Lesson 3 of 3", v.Position)
	assert.Equal(t, "L3", v.Active.ID)
}

func TestBuildViewNarrowPanel(t *testing.T) {
	s := newSession(t, WithLayout(ViewportNarrow))

	v := BuildView(s, nil, nil)
	assert.Equal(t, PanelView{Mode: PanelModeOverlay, Open: false, Toggleable: true}, v.Panel)

	s.TogglePanel()
	v = BuildView(s, nil, nil)
	assert.True(t, v.Panel.Open)
}

func TestParseViewport(t *testing.T) {
	assert.Equal(t, ViewportNarrow, ParseViewport("narrow"))
	assert.Equal(t, ViewportNarrow, ParseViewport(" Mobile "))
	assert.Equal(t, ViewportWide, ParseViewport("desktop"))
	assert.Equal(t, ViewportWide, ParseViewport(""))
}
