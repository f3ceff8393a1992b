package waitlist

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/queue"
	"github.com/treppan-learn/backend/pkg/response"
)

// JoinRequest is the body for POST /waitlist.
type JoinRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
	Source   string `json:"source"`
}

// Store persists waitlist entries.
type Store interface {
	Upsert(ctx context.Context, e *models.WaitlistEntry) (bool, error)
}

// EmailQueue accepts confirmation email jobs.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Handler handles waitlist HTTP endpoints.
type Handler struct {
	store  Store
	emails EmailQueue
	logger *zap.Logger
}

// NewHandler creates a waitlist handler. emails may be nil to skip confirmation mail.
func NewHandler(store Store, emails EmailQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, emails: emails, logger: logger}
}

// Join handles POST /waitlist. Signing up twice is not an error; only new entries get mail.
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "landing"
	}
	entry := &models.WaitlistEntry{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		FullName: strings.TrimSpace(req.FullName),
		Source:   source,
	}
	created, err := h.store.Upsert(c.Request.Context(), entry)
	if err != nil {
		h.logger.Error("waitlist upsert failed", zap.Error(err))
		response.Internal(c, "failed to join waitlist")
		return
	}

	if created && h.emails != nil {
		if err := h.emails.EnqueueEmail(c.Request.Context(), ConfirmationEmail(entry)); err != nil {
			h.logger.Warn("enqueue waitlist email failed", zap.String("entry_id", entry.ID.String()), zap.Error(err))
		}
	}
	if created {
		response.Created(c, entry)
		return
	}
	response.OK(c, entry)
}

// ConfirmationEmail builds the waitlist confirmation job for entry.
func ConfirmationEmail(entry *models.WaitlistEntry) queue.EmailPayload {
	greeting := "Hi there"
	if entry.FullName != "" {
		greeting = "Hi " + entry.FullName
	}
	text := fmt.Sprintf("%s,\n\nThanks for joining the Treppan Learn waitlist. We'll email you as soon as early access opens.", greeting)
	body := fmt.Sprintf("<p>%s,</p><p>Thanks for joining the Treppan Learn waitlist. We'll email you as soon as early access opens.</p>", html.EscapeString(greeting))
	return queue.EmailPayload{
		EmailType:       models.EmailTypeWaitlistConfirmation,
		WaitlistEntryID: entry.ID,
		RecipientEmail:  entry.Email,
		RecipientName:   entry.FullName,
		Subject:         "You're on the Treppan Learn waitlist",
		BodyHTML:        body,
		BodyText:        text,
	}
}
