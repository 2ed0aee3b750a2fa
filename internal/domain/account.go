package domain

import "time"

// ProviderCredential is the provider id of the password-bearing account row.
// A user has at most one credential account; OAuth linkages use their
// provider's own id.
const ProviderCredential = "credential"

// Account is a credential or OAuth linkage for a user.
type Account struct {
	ID         string
	UserID     string
	ProviderID string
	AccountID  string // provider-specific external id

	PasswordHash string // argon2id PHC string; only set for credential accounts

	AccessToken  string // OAuth material, never exported
	RefreshToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}
