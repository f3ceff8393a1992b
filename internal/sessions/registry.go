package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/internal/playback"
)

// Options configures sessions opened by a Registry.
type Options struct {
	DefaultCourseID string
	SeedProgress    int
	QueueSize       int
	IdleTTL         time.Duration
}

// OpenRequest describes a new viewer session.
type OpenRequest struct {
	CourseID string
	Viewport playback.Viewport
	// Progress restores a saved progress value; nil uses the configured seed.
	Progress *int
}

// Lifecycle receives session open and close notifications.
type Lifecycle interface {
	SessionOpened(ctx context.Context, c *Controller)
	SessionClosed(ctx context.Context, c *Controller, closedAt time.Time)
}

// Registry holds running session controllers (thread-safe).
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Controller

	provider  catalog.Provider
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
	hooks     Hooks
	lifecycle Lifecycle
}

// NewRegistry creates a session registry backed by provider.
func NewRegistry(provider catalog.Provider, opts Options, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultCourseID == "" {
		opts.DefaultCourseID = catalog.DefaultCourseID
	}
	return &Registry{
		sessions: make(map[uuid.UUID]*Controller),
		provider: provider,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// SetStateHandler sets the callback invoked with every applied snapshot.
func (reg *Registry) SetStateHandler(fn func(Snapshot)) {
	reg.mu.Lock()
	reg.hooks.OnState = fn
	reg.mu.Unlock()
}

// SetLessonEventHandler sets the callback invoked for lesson start and completion events.
func (reg *Registry) SetLessonEventHandler(fn func(models.LessonEvent)) {
	reg.mu.Lock()
	reg.hooks.OnLessonEvent = fn
	reg.mu.Unlock()
}

// SetLifecycle sets the open/close observer.
func (reg *Registry) SetLifecycle(l Lifecycle) {
	reg.mu.Lock()
	reg.lifecycle = l
	reg.mu.Unlock()
}

// Open initializes a session and starts its controller.
func (reg *Registry) Open(ctx context.Context, req OpenRequest) (*Controller, Snapshot, error) {
	reg.mu.RLock()
	hooks, lifecycle := reg.hooks, reg.lifecycle
	reg.mu.RUnlock()

	seed := reg.opts.SeedProgress
	if req.Progress != nil {
		seed = *req.Progress
	}
	viewport := req.Viewport
	if viewport == "" {
		viewport = playback.ViewportWide
	}
	session := playback.NewSession(reg.provider,
		playback.WithDefaultCourse(reg.opts.DefaultCourseID),
		playback.WithSeedProgress(seed),
		playback.WithLayout(viewport),
	)

	c := newController(uuid.New(), session, reg.provider, hooks, reg.opts.QueueSize, reg.logger, reg.now)
	snap, err := c.start(ctx, req.CourseID)
	if err != nil {
		return nil, Snapshot{}, err
	}

	reg.mu.Lock()
	reg.sessions[c.ID()] = c
	reg.mu.Unlock()

	if lifecycle != nil {
		lifecycle.SessionOpened(ctx, c)
	}
	reg.logger.Info("session opened",
		zap.String("session_id", c.ID().String()),
		zap.String("course_id", snap.State.CourseID),
		zap.String("viewport", string(viewport)))
	return c, snap, nil
}

// Get returns the controller for id.
func (reg *Registry) Get(id uuid.UUID) (*Controller, error) {
	reg.mu.RLock()
	c := reg.sessions[id]
	reg.mu.RUnlock()
	if c == nil {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Apply routes cmd to the session's controller.
func (reg *Registry) Apply(ctx context.Context, id uuid.UUID, cmd Command) (Snapshot, error) {
	c, err := reg.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return c.Apply(ctx, cmd)
}

// Close stops the session and removes it from the registry.
func (reg *Registry) Close(ctx context.Context, id uuid.UUID) error {
	reg.mu.Lock()
	c := reg.sessions[id]
	delete(reg.sessions, id)
	lifecycle := reg.lifecycle
	reg.mu.Unlock()
	if c == nil {
		return ErrSessionNotFound
	}
	c.Close()
	if lifecycle != nil {
		lifecycle.SessionClosed(ctx, c, reg.now())
	}
	reg.logger.Info("session closed", zap.String("session_id", id.String()))
	return nil
}

// CloseAll stops every session. Used on shutdown.
func (reg *Registry) CloseAll(ctx context.Context) {
	for _, id := range reg.ids() {
		_ = reg.Close(ctx, id)
	}
}

// Len returns the number of open sessions.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL and returns how many it closed.
func (reg *Registry) Sweep(ctx context.Context) int {
	if reg.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := reg.now().Add(-reg.opts.IdleTTL)
	var idle []uuid.UUID
	reg.mu.RLock()
	for id, c := range reg.sessions {
		if c.LastActive().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	reg.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if reg.Close(ctx, id) == nil {
			closed++
		}
	}
	if closed > 0 {
		reg.logger.Info("idle sessions swept", zap.Int("count", closed))
	}
	return closed
}

// RunSweeper sweeps idle sessions every interval until ctx is done.
func (reg *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.Sweep(ctx)
		}
	}
}

func (reg *Registry) ids() []uuid.UUID {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(reg.sessions))
	for id := range reg.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Lifecycles fans open and close notifications out to several observers in order.
type Lifecycles []Lifecycle

// SessionOpened implements Lifecycle.
func (ls Lifecycles) SessionOpened(ctx context.Context, c *Controller) {
	for _, l := range ls {
		l.SessionOpened(ctx, c)
	}
}

// SessionClosed implements Lifecycle.
func (ls Lifecycles) SessionClosed(ctx context.Context, c *Controller, closedAt time.Time) {
	for _, l := range ls {
		l.SessionClosed(ctx, c, closedAt)
	}
}
