package playback

import (
	"fmt"

	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/models"
)

// Tab is a content tab below the player.
type Tab string

const (
	TabOverview   Tab = "overview"
	TabResources  Tab = "resources"
	TabDiscussion Tab = "discussion"
	TabClassmates Tab = "classmates"
)

// Tabs returns the content tabs in display order. Each call returns a new slice.
func Tabs() []Tab {
	return []Tab{TabOverview, TabResources, TabDiscussion, TabClassmates}
}

// Panel presentation modes.
const (
	PanelModeSidebar = "sidebar"
	PanelModeOverlay = "overlay"
)

// LessonItem is one row of the lesson list.
type LessonItem struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Completed bool   `json:"completed"`
	Active    bool   `json:"active"`
}

// PanelView describes how the lesson panel is presented.
type PanelView struct {
	Mode       string `json:"mode"`
	Open       bool   `json:"open"`
	Toggleable bool   `json:"toggleable"`
}

// View is the presentation model of a session for one viewport. Wide and narrow layouts share
// it; only Panel differs.
type View struct {
	CourseID      string                `json:"course_id"`
	CourseTitle   string                `json:"course_title,omitempty"`
	Summary       string                `json:"summary"`
	Viewport      Viewport              `json:"viewport"`
	Lessons       []LessonItem          `json:"lessons"`
	Active        LessonItem            `json:"active"`
	Position      string                `json:"position"`
	ProgressLabel string                `json:"progress_label"`
	IsPlaying     bool                  `json:"is_playing"`
	Progress      int                   `json:"progress"`
	Next          *LessonItem           `json:"next,omitempty"`
	Panel         PanelView             `json:"panel"`
	Tabs          []Tab                 `json:"tabs"`
	Content       *models.CourseContent `json:"content,omitempty"`
}

// BuildView renders s. course and content are optional catalog data for the header and tabs.
func BuildView(s *Session, course *models.CourseSummary, content *models.CourseContent) View {
	st := s.State()
	lessons := s.Lessons()
	vp := ViewportOf(s.Layout())

	v := View{
		CourseID:      st.CourseID,
		Summary:       catalog.CourseSummaryLine(lessons),
		Viewport:      vp,
		Lessons:       make([]LessonItem, 0, len(lessons)),
		ProgressLabel: fmt.Sprintf("%d%% complete", st.ProgressPercent),
		IsPlaying:     st.IsPlaying,
		Progress:      st.ProgressPercent,
		Tabs:          Tabs(),
		Content:       content,
	}
	if course != nil {
		v.CourseTitle = course.Title
	}

	activeIdx := -1
	for i, l := range lessons {
		item := LessonItem{
			ID:        l.ID,
			Number:    fmt.Sprintf("%02d", i+1),
			Title:     l.Title,
			Duration:  l.DurationLabel,
			Completed: l.Completed,
			Active:    l.ID == st.ActiveLessonID,
		}
		if item.Active {
			activeIdx = i
			v.Active = item
		}
		v.Lessons = append(v.Lessons, item)
	}
	if activeIdx >= 0 {
		v.Position = fmt.Sprintf("Lesson %d of %d", activeIdx+1, len(lessons))
		if activeIdx+1 < len(v.Lessons) {
			next := v.Lessons[activeIdx+1]
			v.Next = &next
		}
	}

	if vp.Narrow() {
		v.Panel = PanelView{Mode: PanelModeOverlay, Open: st.PanelVisible, Toggleable: true}
	} else {
		v.Panel = PanelView{Mode: PanelModeSidebar, Open: true}
	}
	return v
}
