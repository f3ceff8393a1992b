package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueLessonEvents is the Redis list key for lesson telemetry jobs.
	QueueLessonEvents = "worker:lesson_events"
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// DequeueTimeout bounds one blocking pop so shutdown is noticed.
	DequeueTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeLessonEvent JobType = "lesson_event"
	JobTypeEmail       JobType = "email"
)

// LessonEventPayload is the payload for lesson telemetry jobs.
type LessonEventPayload struct {
	EventType string    `json:"event_type"`
	SessionID uuid.UUID `json:"session_id"`
	CourseID  string    `json:"course_id"`
	LessonID  string    `json:"lesson_id"`
	At        time.Time `json:"at"`
}

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	EmailType       string    `json:"email_type"`
	WaitlistEntryID uuid.UUID `json:"waitlist_entry_id"`
	RecipientEmail  string    `json:"recipient_email"`
	RecipientName   string    `json:"recipient_name,omitempty"`
	Subject         string    `json:"subject"`
	BodyHTML        string    `json:"body_html"`
	BodyText        string    `json:"body_text,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// queueFor returns the list a job type is consumed from.
func queueFor(t JobType) (string, error) {
	switch t {
	case JobTypeLessonEvent:
		return QueueLessonEvents, nil
	case JobTypeEmail:
		return QueueEmails, nil
	}
	return "", fmt.Errorf("unknown job type: %s", t)
}

func (q *Queue) enqueue(ctx context.Context, t JobType, payload interface{}) (*Job, error) {
	key, err := queueFor(t)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	return job, nil
}

// EnqueueLessonEvent enqueues a lesson telemetry job.
func (q *Queue) EnqueueLessonEvent(ctx context.Context, payload LessonEventPayload) error {
	job, err := q.enqueue(ctx, JobTypeLessonEvent, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued lesson event job", zap.String("job_id", job.ID), zap.String("event_type", payload.EventType), zap.String("lesson_id", payload.LessonID))
	return nil
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	job, err := q.enqueue(ctx, JobTypeEmail, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued email job", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// Dequeue blocks until a job is available, DequeueTimeout passes or ctx is done. Returns job
// and key (queue name); a nil job means nothing arrived.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, DequeueTimeout, QueueLessonEvents, QueueEmails).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	key, err := queueFor(job.Type)
	if err != nil || job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Len returns the number of jobs waiting in a queue.
func (q *Queue) Len(ctx context.Context, key string) (int64, error) {
	return q.client.LLen(ctx, key).Result()
}

// DeadLetter moves a job straight to the DLQ without further retries.
func (q *Queue) DeadLetter(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
		return err
	}
	q.logger.Warn("job dead-lettered", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}
