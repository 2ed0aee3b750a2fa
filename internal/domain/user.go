package domain

import "time"

// Roles form a closed set; the column is free text but services only ever
// write these two values.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	Role          string
	Anonymous     bool // guest accounts provisioned via session codes

	Banned     bool
	BanReason  string     // empty unless banned
	BanExpires *time.Time // nil means indefinite

	TwoFactorSecret  *string    // TOTP secret, base32 (nullable)
	TwoFactorEnabled *time.Time // when two-factor was activated (nullable)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// BanActive reports whether the user is currently banned, honouring
// temporary bans that have lapsed.
func (u User) BanActive(now time.Time) bool {
	if !u.Banned {
		return false
	}
	if u.BanExpires != nil && now.After(*u.BanExpires) {
		return false
	}
	return true
}
