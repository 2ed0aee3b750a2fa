package domain

import "time"

// Session is an active login. The opaque token is stored fingerprinted; the
// raw value only ever lives inside the signed cookie.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time

	IPAddress string // origin address at issue time, may be "unknown"
	UserAgent string // raw device descriptor, may be "unknown"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }
