package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is the read-only projection of a platform user. Users are provisioned
// and authenticated by the external platform; this server only resolves
// profile claims for userinfo and ID tokens.
type User struct {
	ID            ulid.ULID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Company       string    `json:"company"`
	JobTitle      string    `json:"job_title"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// FindByID finds a user by ID
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)
}
