package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/analytics"
	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/mailer"
	"github.com/treppan-learn/backend/pkg/queue"
)

// ErrPermanent marks job failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

// JobSource is the queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
	DeadLetter(ctx context.Context, job *queue.Job) error
}

// LessonStatsWriter persists lesson telemetry.
type LessonStatsWriter interface {
	RecordLessonEvent(ctx context.Context, ev models.LessonEvent) error
}

// EmailSender delivers email.
type EmailSender interface {
	Send(ctx context.Context, msg mailer.Message) (*mailer.Result, error)
}

// EmailLogWriter records email delivery attempts. Create keeps one row per job id.
type EmailLogWriter interface {
	Create(ctx context.Context, el *models.EmailLog) error
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// WaitlistConfirmer marks waitlist entries whose confirmation went out.
type WaitlistConfirmer interface {
	MarkConfirmationSent(ctx context.Context, id uuid.UUID) error
}

// Processor processes lesson telemetry and email jobs.
type Processor struct {
	queue    JobSource
	stats    LessonStatsWriter
	sender   EmailSender
	emailLog EmailLogWriter
	waitlist WaitlistConfirmer
	logger   *zap.Logger
	backoff  time.Duration
}

// NewProcessor creates a job processor. sender may be nil when email is not configured.
func NewProcessor(q JobSource, stats LessonStatsWriter, sender EmailSender, emailLog EmailLogWriter, waitlist WaitlistConfirmer, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		queue:    q,
		stats:    stats,
		sender:   sender,
		emailLog: emailLog,
		waitlist: waitlist,
		logger:   logger,
		backoff:  queue.RetryBackoff,
	}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeLessonEvent:
		return p.processLessonEvent(ctx, job)
	case queue.JobTypeEmail:
		return p.processEmail(ctx, job)
	default:
		return fmt.Errorf("%w: unknown job type: %s", ErrPermanent, job.Type)
	}
}

func (p *Processor) processLessonEvent(ctx context.Context, job *queue.Job) error {
	var payload queue.LessonEventPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", ErrPermanent, err)
	}
	ev := analytics.FromPayload(payload)
	if ev.Type != models.LessonEventStarted && ev.Type != models.LessonEventCompleted {
		return fmt.Errorf("%w: unknown lesson event type %q", ErrPermanent, ev.Type)
	}
	if err := p.stats.RecordLessonEvent(ctx, ev); err != nil {
		return fmt.Errorf("record lesson event: %w", err)
	}
	return nil
}

func (p *Processor) processEmail(ctx context.Context, job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", ErrPermanent, err)
	}

	el := &models.EmailLog{
		JobID:          job.ID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailLogStatusPending,
	}
	if payload.WaitlistEntryID != uuid.Nil {
		id := payload.WaitlistEntryID
		el.WaitlistEntryID = &id
	}
	if err := p.emailLog.Create(ctx, el); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}

	if p.sender == nil {
		_ = p.emailLog.MarkFailed(ctx, el.ID, "email sender not configured")
		p.logger.Warn("email skipped, sender not configured", zap.String("email_type", payload.EmailType))
		return nil
	}

	_, err := p.sender.Send(ctx, mailer.Message{
		To:       mailer.Address{Email: payload.RecipientEmail, Name: payload.RecipientName},
		Subject:  payload.Subject,
		Text:     payload.BodyText,
		HTML:     payload.BodyHTML,
		Category: payload.EmailType,
	})
	if err != nil {
		_ = p.emailLog.MarkFailed(ctx, el.ID, err.Error())
		var he *mailer.HTTPError
		if errors.As(err, &he) && !he.Retryable() {
			return fmt.Errorf("%w: send email: %v", ErrPermanent, err)
		}
		return fmt.Errorf("send email: %w", err)
	}

	if err := p.emailLog.MarkSent(ctx, el.ID); err != nil {
		p.logger.Warn("mark email sent failed", zap.String("email_log_id", el.ID.String()), zap.Error(err))
	}
	if payload.EmailType == models.EmailTypeWaitlistConfirmation && el.WaitlistEntryID != nil && p.waitlist != nil {
		if err := p.waitlist.MarkConfirmationSent(ctx, *el.WaitlistEntryID); err != nil {
			p.logger.Warn("mark waitlist confirmed failed", zap.String("entry_id", el.WaitlistEntryID.String()), zap.Error(err))
		}
	}
	p.logger.Info("email sent", zap.String("email_type", payload.EmailType), zap.String("email_log_id", el.ID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		err = p.Process(ctx, job)
		switch {
		case err == nil:
		case errors.Is(err, ErrPermanent):
			p.logger.Error("job failed permanently", zap.String("job_id", job.ID), zap.Error(err))
			if dlErr := p.queue.DeadLetter(ctx, job); dlErr != nil {
				p.logger.Error("dead letter failed", zap.Error(dlErr))
			}
		default:
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	if p.backoff <= 0 {
		return
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
