package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/queue"
)

const enqueueTimeout = 2 * time.Second

// LessonEventQueue accepts lesson telemetry jobs.
type LessonEventQueue interface {
	EnqueueLessonEvent(ctx context.Context, payload queue.LessonEventPayload) error
}

// Publisher forwards session lesson events to the worker queue.
type Publisher struct {
	queue  LessonEventQueue
	logger *zap.Logger
}

// NewPublisher creates a lesson event publisher.
func NewPublisher(q LessonEventQueue, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{queue: q, logger: logger}
}

// Publish enqueues ev. Failures are logged; telemetry never blocks playback.
func (p *Publisher) Publish(ev models.LessonEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	if err := p.queue.EnqueueLessonEvent(ctx, ToPayload(ev)); err != nil {
		p.logger.Warn("enqueue lesson event failed",
			zap.String("session_id", ev.SessionID.String()),
			zap.String("lesson_id", ev.LessonID),
			zap.Error(err))
	}
}

// ToPayload converts a lesson event to its job payload.
func ToPayload(ev models.LessonEvent) queue.LessonEventPayload {
	return queue.LessonEventPayload{
		EventType: string(ev.Type),
		SessionID: ev.SessionID,
		CourseID:  ev.CourseID,
		LessonID:  ev.LessonID,
		At:        ev.At,
	}
}

// FromPayload converts a job payload back to a lesson event.
func FromPayload(p queue.LessonEventPayload) models.LessonEvent {
	return models.LessonEvent{
		Type:      models.LessonEventType(p.EventType),
		SessionID: p.SessionID,
		CourseID:  p.CourseID,
		LessonID:  p.LessonID,
		At:        p.At,
	}
}
