package models

import "time"

// User is the identity a token pair is issued for. Users are never removed,
// deactivation clears Active instead.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
