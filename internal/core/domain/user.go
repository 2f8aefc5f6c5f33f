package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered custody user.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"` // Never expose
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
