// Package sessions runs playback sessions for connected viewers. Each session is owned by a
// Controller whose run loop is the only writer, so REST actions and player events are applied
// in arrival order.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/internal/playback"
)

var (
	// ErrSessionNotFound is returned for ids the registry does not hold.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when a command reaches a session that has been closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownAction is returned for commands the session does not understand.
	ErrUnknownAction = errors.New("unknown action")
)

// Action names a session command.
type Action string

const (
	ActionInitialize      Action = "initialize"
	ActionSelectLesson    Action = "select_lesson"
	ActionTogglePlay      Action = "toggle_play"
	ActionAdvanceProgress Action = "advance_progress"
	ActionNextLesson      Action = "next_lesson"
	ActionTogglePanel     Action = "toggle_panel"
	ActionCompleteLesson  Action = "complete_lesson"
	ActionSetViewport     Action = "set_viewport"

	actionRead Action = ""
)

// Command is one viewer action or player event.
type Command struct {
	Action   Action `json:"action"`
	CourseID string `json:"course_id,omitempty"`
	LessonID string `json:"lesson_id,omitempty"`
	Value    int    `json:"value,omitempty"`
	Viewport string `json:"viewport,omitempty"`
}

// Snapshot is an immutable copy of a session after a command.
type Snapshot struct {
	SessionID uuid.UUID      `json:"session_id"`
	Version   uint64         `json:"version"`
	Applied   bool           `json:"applied"`
	State     playback.State `json:"state"`
	View      playback.View  `json:"view"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Hooks receive session output. They run on a per-session delivery goroutine in command
// order, so a slow hook never delays Apply. Output is dropped when the outbox is full.
type Hooks struct {
	OnState       func(Snapshot)
	OnLessonEvent func(models.LessonEvent)
}

type request struct {
	cmd   Command
	reply chan result
}

type result struct {
	snap Snapshot
	err  error
}

// Controller serializes all access to one playback session.
type Controller struct {
	id       uuid.UUID
	session  *playback.Session
	provider catalog.Provider
	hooks    Hooks
	logger   *zap.Logger
	now      func() time.Time

	course  *models.CourseSummary
	content *models.CourseContent
	version uint64

	openedAt   time.Time
	mu         sync.Mutex
	lastActive time.Time
	courseID   string

	cmds   chan request
	cancel context.CancelFunc
	done   chan struct{}

	outbox      chan func()
	closeOutbox sync.Once
}

func newController(id uuid.UUID, session *playback.Session, provider catalog.Provider, hooks Hooks, queueSize int, logger *zap.Logger, now func() time.Time) *Controller {
	if queueSize <= 0 {
		queueSize = 64
	}
	t := now()
	return &Controller{
		id:         id,
		session:    session,
		provider:   provider,
		hooks:      hooks,
		logger:     logger,
		now:        now,
		openedAt:   t,
		lastActive: t,
		cmds:       make(chan request, queueSize),
		done:       make(chan struct{}),
		outbox:     make(chan func(), queueSize*4),
	}
}

// ID returns the session id.
func (c *Controller) ID() uuid.UUID { return c.id }

// CourseID returns the resolved course the session is playing.
func (c *Controller) CourseID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.courseID
}

// OpenedAt returns when the session was opened.
func (c *Controller) OpenedAt() time.Time { return c.openedAt }

// LastActive returns when the session last received a command.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastActive = c.now()
	c.mu.Unlock()
}

func (c *Controller) setCourseID(id string) {
	c.mu.Lock()
	c.courseID = id
	c.mu.Unlock()
}

// start initializes the session on courseID and starts the loop.
func (c *Controller) start(ctx context.Context, courseID string) (Snapshot, error) {
	if err := c.session.Initialize(ctx, courseID); err != nil {
		return Snapshot{}, err
	}
	go c.drain()
	c.loadCatalog(ctx)
	c.setCourseID(c.session.State().CourseID)
	snap := c.snapshot(true)
	c.emitStarted()

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(loopCtx)
	return snap, nil
}

// Apply queues cmd and waits for the resulting snapshot.
func (c *Controller) Apply(ctx context.Context, cmd Command) (Snapshot, error) {
	req := request{cmd: cmd, reply: make(chan result, 1)}
	select {
	case c.cmds <- req:
	case <-c.done:
		return Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.snap, res.err
	case <-c.done:
		return Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Snapshot returns the current state without changing it.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.Apply(ctx, Command{Action: actionRead})
}

// Close stops the loop. Pending and later commands fail with ErrSessionClosed.
func (c *Controller) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.closeOutbox.Do(func() { close(c.outbox) })
}

// drain runs hook calls in the order the loop queued them.
func (c *Controller) drain() {
	for fn := range c.outbox {
		fn()
	}
}

// deliver queues fn for the drain goroutine without blocking the loop.
func (c *Controller) deliver(kind string, fn func()) {
	select {
	case c.outbox <- fn:
	default:
		c.logger.Warn("session outbox full, dropping output",
			zap.String("session_id", c.id.String()),
			zap.String("kind", kind),
		)
	}
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.cmds:
			snap, err := c.handle(ctx, req.cmd)
			req.reply <- result{snap: snap, err: err}
		}
	}
}

func (c *Controller) handle(ctx context.Context, cmd Command) (Snapshot, error) {
	if cmd.Action == actionRead {
		return c.snapshot(false), nil
	}
	c.touch()

	before := c.session.State()
	applied := false
	switch cmd.Action {
	case ActionInitialize:
		courseID := cmd.CourseID
		if courseID == "" {
			courseID = before.CourseID
		}
		if err := c.session.Initialize(ctx, courseID); err != nil {
			return Snapshot{}, fmt.Errorf("initialize: %w", err)
		}
		if c.session.State().CourseID != before.CourseID {
			c.loadCatalog(ctx)
		}
		c.setCourseID(c.session.State().CourseID)
		applied = true
	case ActionSelectLesson:
		applied = c.session.SelectLesson(cmd.LessonID)
	case ActionTogglePlay:
		c.session.TogglePlay()
		applied = true
	case ActionAdvanceProgress:
		c.session.AdvanceProgress(cmd.Value)
		applied = true
	case ActionNextLesson:
		applied = c.session.GoToNextLesson()
	case ActionTogglePanel:
		applied = c.session.TogglePanel()
	case ActionCompleteLesson:
		lessonID := cmd.LessonID
		if lessonID == "" {
			lessonID = before.ActiveLessonID
		}
		applied = c.session.CompleteLesson(lessonID)
		if applied {
			c.emit(models.LessonEventCompleted, lessonID)
		}
	case ActionSetViewport:
		c.session.SetLayout(playback.ParseViewport(cmd.Viewport))
		applied = true
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}

	after := c.session.State()
	if cmd.Action == ActionInitialize || after.ActiveLessonID != before.ActiveLessonID {
		c.emitStarted()
	}
	return c.snapshot(applied), nil
}

func (c *Controller) snapshot(applied bool) Snapshot {
	if applied {
		c.version++
	}
	snap := Snapshot{
		SessionID: c.id,
		Version:   c.version,
		Applied:   applied,
		State:     c.session.State(),
		View:      playback.BuildView(c.session, c.course, c.content),
		UpdatedAt: c.now(),
	}
	if applied && c.hooks.OnState != nil {
		onState, out := c.hooks.OnState, snap
		c.deliver("state", func() { onState(out) })
	}
	return snap
}

func (c *Controller) emitStarted() {
	c.emit(models.LessonEventStarted, c.session.State().ActiveLessonID)
}

func (c *Controller) emit(t models.LessonEventType, lessonID string) {
	if c.hooks.OnLessonEvent == nil {
		return
	}
	ev := models.LessonEvent{
		Type:      t,
		SessionID: c.id,
		CourseID:  c.session.State().CourseID,
		LessonID:  lessonID,
		At:        c.now(),
	}
	onEvent := c.hooks.OnLessonEvent
	c.deliver("lesson_event", func() { onEvent(ev) })
}

// loadCatalog fetches header and tab data for the view. Failures only leave them empty.
func (c *Controller) loadCatalog(ctx context.Context) {
	courseID := c.session.State().CourseID
	course, err := c.provider.GetCourse(ctx, courseID)
	if err != nil {
		c.logger.Warn("load course summary failed", zap.String("course_id", courseID), zap.Error(err))
	}
	content, err := c.provider.GetContent(ctx, courseID)
	if err != nil {
		c.logger.Warn("load course content failed", zap.String("course_id", courseID), zap.Error(err))
	}
	c.course, c.content = course, content
}
