package domain

import "time"

// EmailChangeRequest is a pending email-change confirmation. At most one
// live (unexpired) request exists per user; confirming one destroys all of
// that user's requests.
type EmailChangeRequest struct {
	ID           string
	UserID       string
	CurrentEmail string // snapshot at request time
	NewEmail     string
	TokenHash    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired reports whether the request's confirmation window has closed.
func (r EmailChangeRequest) Expired(now time.Time) bool { return now.After(r.ExpiresAt) }
