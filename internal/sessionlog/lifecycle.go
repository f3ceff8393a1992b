package sessionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/sessions"
)

const writeTimeout = 5 * time.Second

// Store persists viewer session open/close rows.
type Store interface {
	LogOpen(ctx context.Context, sessionID uuid.UUID, courseID string, openedAt time.Time) error
	LogClose(ctx context.Context, sessionID uuid.UUID, closedAt time.Time) error
}

// Recorder writes the viewer session log as sessions open and close.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// SessionOpened implements sessions.Lifecycle.
func (r *Recorder) SessionOpened(ctx context.Context, c *sessions.Controller) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.store.LogOpen(ctx, c.ID(), c.CourseID(), c.OpenedAt()); err != nil {
		r.logger.Warn("log session open failed", zap.String("session_id", c.ID().String()), zap.Error(err))
	}
}

// SessionClosed implements sessions.Lifecycle.
func (r *Recorder) SessionClosed(ctx context.Context, c *sessions.Controller, closedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.store.LogClose(ctx, c.ID(), closedAt); err != nil {
		r.logger.Warn("log session close failed", zap.String("session_id", c.ID().String()), zap.Error(err))
	}
}
