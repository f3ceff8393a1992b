package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType for automation.
const (
	EmailTypeWaitlistConfirmation = "waitlist_confirmation"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records sent automation emails.
type EmailLog struct {
	ID              uuid.UUID  `json:"id"`
	WaitlistEntryID *uuid.UUID `json:"waitlist_entry_id,omitempty"`
	JobID           string     `json:"job_id,omitempty"`
	Attempts        int        `json:"attempts"`
	EmailType       string     `json:"email_type"`
	RecipientEmail  string     `json:"recipient_email"`
	Subject         string     `json:"subject,omitempty"`
	Status          string     `json:"status"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
