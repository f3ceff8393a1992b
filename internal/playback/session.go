// Package playback holds the course playback session: which lesson is active, whether it is
// playing, how far it has progressed and whether the lesson panel is open.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/models"
)

// ErrEmptyCourse is returned by Initialize when the resolved course has no lessons.
var ErrEmptyCourse = errors.New("course has no lessons")

// State is the observable record of a session.
type State struct {
	CourseID        string `json:"course_id"`
	ActiveLessonID  string `json:"active_lesson_id"`
	IsPlaying       bool   `json:"is_playing"`
	ProgressPercent int    `json:"progress_percent"`
	PanelVisible    bool   `json:"panel_visible"`
}

// Session is one viewer's walk through one course. It is not safe for concurrent use; callers
// serialize mutations (see sessions.Controller).
type Session struct {
	provider        catalog.Provider
	defaultCourseID string
	seedProgress    int
	layout          LayoutCapability

	initialized bool
	state       State
	lessons     []models.Lesson
	active      int
}

// Option configures a Session.
type Option func(*Session)

// WithDefaultCourse sets the course substituted for unknown course ids.
func WithDefaultCourse(courseID string) Option {
	return func(s *Session) { s.defaultCourseID = courseID }
}

// WithSeedProgress sets the progress a freshly initialized session starts at.
func WithSeedProgress(percent int) Option {
	return func(s *Session) { s.seedProgress = clampPercent(percent) }
}

// WithLayout sets the layout capability. The default is a wide viewport.
func WithLayout(l LayoutCapability) Option {
	return func(s *Session) {
		if l != nil {
			s.layout = l
		}
	}
}

// NewSession creates an uninitialized session reading lessons from provider.
func NewSession(provider catalog.Provider, opts ...Option) *Session {
	s := &Session{
		provider:        provider,
		defaultCourseID: catalog.DefaultCourseID,
		layout:          ViewportWide,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the lessons of courseID, falling back to the default course when the id is
// unknown, and activates the first lesson with playback reset and the panel closed.
func (s *Session) Initialize(ctx context.Context, courseID string) error {
	resolved, lessons, err := catalog.ResolveLessons(ctx, s.provider, courseID, s.defaultCourseID)
	if err != nil {
		return fmt.Errorf("resolve lessons: %w", err)
	}
	if len(lessons) == 0 {
		return fmt.Errorf("course %q: %w", resolved, ErrEmptyCourse)
	}
	s.lessons = lessons
	s.active = 0
	s.state = State{
		CourseID:        resolved,
		ActiveLessonID:  lessons[0].ID,
		IsPlaying:       false,
		ProgressPercent: s.seedProgress,
		PanelVisible:    false,
	}
	s.initialized = true
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (s *Session) Initialized() bool { return s.initialized }

// State returns a copy of the current state.
func (s *Session) State() State { return s.state }

// Layout returns the current layout capability.
func (s *Session) Layout() LayoutCapability { return s.layout }

// SetLayout replaces the layout capability, e.g. after a viewport resize.
func (s *Session) SetLayout(l LayoutCapability) {
	if l != nil {
		s.layout = l
	}
}

// Lessons returns a copy of the lesson sequence.
func (s *Session) Lessons() []models.Lesson {
	out := make([]models.Lesson, len(s.lessons))
	copy(out, s.lessons)
	return out
}

// ActiveLesson returns the active lesson and its index in the sequence.
func (s *Session) ActiveLesson() (models.Lesson, int) {
	if !s.initialized {
		return models.Lesson{}, -1
	}
	return s.lessons[s.active], s.active
}

// NextLesson returns the lesson after the active one, if any.
func (s *Session) NextLesson() (models.Lesson, bool) {
	if !s.initialized || s.active+1 >= len(s.lessons) {
		return models.Lesson{}, false
	}
	return s.lessons[s.active+1], true
}

// SelectLesson makes lessonID active and resets playback. Any lesson of the sequence may be
// selected. Unknown ids leave the session untouched and return false.
func (s *Session) SelectLesson(lessonID string) bool {
	idx := s.indexOf(lessonID)
	if idx < 0 {
		return false
	}
	s.activate(idx)
	return true
}

// TogglePlay flips the play/pause flag.
func (s *Session) TogglePlay() {
	if !s.initialized {
		return
	}
	s.state.IsPlaying = !s.state.IsPlaying
}

// AdvanceProgress records the player's progress, clamped to [0,100].
func (s *Session) AdvanceProgress(percent int) {
	if !s.initialized {
		return
	}
	s.state.ProgressPercent = clampPercent(percent)
}

// GoToNextLesson activates the successor of the active lesson. On the last lesson it does
// nothing and returns false.
func (s *Session) GoToNextLesson() bool {
	if !s.initialized || s.active+1 >= len(s.lessons) {
		return false
	}
	s.activate(s.active + 1)
	return true
}

// TogglePanel opens or closes the lesson panel overlay. It is ignored on wide layouts.
func (s *Session) TogglePanel() bool {
	if !s.initialized || !s.layout.Narrow() {
		return false
	}
	s.state.PanelVisible = !s.state.PanelVisible
	return true
}

// CompleteLesson marks lessonID completed for this session. It returns false for unknown ids
// and for lessons already completed.
func (s *Session) CompleteLesson(lessonID string) bool {
	idx := s.indexOf(lessonID)
	if idx < 0 || s.lessons[idx].Completed {
		return false
	}
	s.lessons[idx].Completed = true
	return true
}

// activate switches the active lesson; play and progress reset together with the switch.
func (s *Session) activate(idx int) {
	s.active = idx
	s.state.ActiveLessonID = s.lessons[idx].ID
	s.state.IsPlaying = false
	s.state.ProgressPercent = 0
	if s.layout.Narrow() {
		s.state.PanelVisible = false
	}
}

func (s *Session) indexOf(lessonID string) int {
	if !s.initialized {
		return -1
	}
	for i, l := range s.lessons {
		if l.ID == lessonID {
			return i
		}
	}
	return -1
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
