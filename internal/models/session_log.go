package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewerSessionLog tracks open/close and watch duration of one playback session.
type ViewerSessionLog struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"`
	CourseID     string     `json:"course_id"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	WatchSeconds int64      `json:"watch_seconds"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LessonEventType identifies a lesson telemetry event.
type LessonEventType string

const (
	LessonEventStarted   LessonEventType = "lesson_started"
	LessonEventCompleted LessonEventType = "lesson_completed"
)

// LessonEvent is emitted by a playback session when the active lesson changes or a lesson completes.
type LessonEvent struct {
	Type      LessonEventType `json:"type"`
	SessionID uuid.UUID       `json:"session_id"`
	CourseID  string          `json:"course_id"`
	LessonID  string          `json:"lesson_id"`
	At        time.Time       `json:"at"`
}

// LessonStats holds aggregate start/completion counts for a lesson.
type LessonStats struct {
	CourseID    string    `json:"course_id"`
	LessonID    string    `json:"lesson_id"`
	Starts      int64     `json:"starts"`
	Completions int64     `json:"completions"`
	UpdatedAt   time.Time `json:"updated_at"`
}
