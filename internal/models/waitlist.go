package models

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntry is an early-access signup from the landing page.
type WaitlistEntry struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name,omitempty"`
	Source      string     `json:"source,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
