package domain

import "time"

// CodeLength is the length of a guest session code.
const CodeLength = 8

// SessionCode is a one-time guest-access code. Codes are stored uppercased
// and compared uppercased.
//
// Lifecycle is one-way: ACTIVE -> redeemed (used + session stamped) or
// invalidated (used, no session). Expiry is derived from ExpiresAt, never
// stored.
type SessionCode struct {
	ID        string
	Code      string
	ExpiresAt time.Time

	Used            bool
	UsedAt          *time.Time
	UsedBySessionID string // empty for admin invalidation
	UsedByUserID    string

	CreatedBy string // admin user id; cleared if the creator is deleted
	CreatedAt time.Time
}

// Expired reports whether the code has passed its expiry window.
func (c SessionCode) Expired(now time.Time) bool { return now.After(c.ExpiresAt) }

// SessionCodeWithCreator joins the creator's display fields for admin listings.
type SessionCodeWithCreator struct {
	SessionCode
	CreatorName  string
	CreatorEmail string
}
