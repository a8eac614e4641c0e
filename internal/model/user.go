// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account known to the tracker backend.
//
// The client only ever sees ID, Email and Name (the "who am I" profile).
// PasswordHash and the timestamps are populated by the reference backend's
// repository and never serialised.
//
// WHY ID int64?
// Application records reference their owner by numeric ID and the client
// compares that ID against the session user's ID to decide visibility.
// Keeping both sides int64 makes the comparison a plain ==.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// UserRef is the owner reference embedded in an Application payload.
type UserRef struct {
	ID int64 `json:"id"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the registration payload. Name is optional.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// AuthResponse is what /auth/login and /auth/register return.
// User is optional: older backends return only the token and expect the
// client to call /auth/me.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}
