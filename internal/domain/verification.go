package domain

import "time"

// Verification purposes.
const (
	VerifyEmail         = "verify_email"
	VerifyPasswordReset = "password_reset"
)

// Verification is a short-lived single-purpose token: email verification on
// signup and password resets. Identifier is the user id; the raw token is
// only ever mailed out, the row stores its fingerprint.
type Verification struct {
	ID         string
	Identifier string
	Purpose    string
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token window has closed.
func (v Verification) Expired(now time.Time) bool { return now.After(v.ExpiresAt) }
