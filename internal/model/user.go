package model

import "time"

// User is an account reachable by email or by Google subject. PasswordHash is
// nil for federated-only accounts; GoogleSub is nil for password-only ones.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-"`
	GoogleSub    *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
