package store

import (
	"context"
	"errors"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Sessions() Sessions
	Accounts() Accounts
	SessionCodes() SessionCodes
	EmailChangeRequests() EmailChangeRequests
	Verifications() Verifications
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and rolling
	// back on error. This is the recommended way to handle multi-step
	// operations that must be atomic (e.g., guest provisioning + code
	// redemption).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// UserFilter narrows and pages admin user listings. Zero values mean "no
// filter"; Page is 1-based.
type UserFilter struct {
	Role   string // "user" | "admin" | ""
	Status string // "active" | "banned" | ""
	Page   int
	Limit  int
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and email-collision checks.
	// Lookup is case-insensitive; emails are stored lowercased.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists on an email collision.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateEmail sets the email and bumps updated_at.
	UpdateEmail(ctx context.Context, userID, email string) error

	// UpdateRole sets the role and bumps updated_at.
	UpdateRole(ctx context.Context, userID, role string) error

	// SetEmailVerified flags the address as confirmed.
	SetEmailVerified(ctx context.Context, userID string, verified bool) error

	// SetBan updates the full ban state in one statement.
	SetBan(ctx context.Context, userID string, banned bool, reason string, expires *time.Time) error

	// SetTwoFactor updates the TOTP secret and enabled timestamp together.
	SetTwoFactor(ctx context.Context, userID string, secret *string, enabled *time.Time) error

	// DeleteUser cascades to sessions, accounts and email change requests
	// (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// ListUsers returns one page plus the unpaged total.
	ListUsers(ctx context.Context, f UserFilter) ([]domain.User, int, error)

	// CountUsers returns the total number of users; zero means the next
	// registration seeds the admin.
	CountUsers(ctx context.Context) (int, error)

	// LiftExpiredBans clears ban state where ban_expires has passed
	// (housekeeping).
	LiftExpiredBans(ctx context.Context, now time.Time) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListSessionsByUser returns the user's sessions, most recently active
	// first.
	ListSessionsByUser(ctx context.Context, userID string) ([]domain.Session, error)

	// TouchSession bumps updated_at for sliding activity tracking.
	TouchSession(ctx context.Context, id string, now time.Time) error

	DeleteSession(ctx context.Context, id string) error

	// DeleteUserSessions removes every session for a user except the one
	// given (pass empty to remove all). Returns the number removed.
	DeleteUserSessions(ctx context.Context, userID, exceptID string) (int, error)

	// LastSignIn returns the newest session creation time for a user, or
	// ErrNotFound if they have never signed in.
	LastSignIn(ctx context.Context, userID string) (time.Time, error)

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

type Accounts interface {
	CreateAccount(ctx context.Context, a domain.Account) error

	// GetCredentialAccount returns the password-bearing account for a user,
	// ErrNotFound for OAuth-only users.
	GetCredentialAccount(ctx context.Context, userID string) (domain.Account, error)

	// ListAccountsByUser returns all linkages for data export and admin
	// listings.
	ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error)

	// UpdatePasswordHash sets the hash on a credential account and bumps
	// updated_at.
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
}

type SessionCodes interface {
	// CreateSessionCode inserts a new code. Returns ErrAlreadyExists on a
	// code-string collision so the caller can retry with a fresh code.
	CreateSessionCode(ctx context.Context, c domain.SessionCode) error

	GetSessionCodeByID(ctx context.Context, id string) (domain.SessionCode, error)

	// GetSessionCodeByCode looks up by exact (uppercased) code string.
	GetSessionCodeByCode(ctx context.Context, code string) (domain.SessionCode, error)

	// ListSessionCodes returns all codes newest-first with creator identity
	// joined.
	ListSessionCodes(ctx context.Context) ([]domain.SessionCodeWithCreator, error)

	// MarkSessionCodeUsed performs the conditional single-use update:
	// used is set only where it is still clear, and the affected-row count
	// gates success. Session and user ids may be empty (admin invalidation).
	MarkSessionCodeUsed(ctx context.Context, id, sessionID, userID string, usedAt time.Time) (bool, error)

	DeleteSessionCode(ctx context.Context, id string) error
}

type EmailChangeRequests interface {
	// CreateEmailChangeRequest inserts a pending request. A unique index on
	// user_id arbitrates concurrent requests; ErrAlreadyExists signals a
	// request is already on file for the user.
	CreateEmailChangeRequest(ctx context.Context, r domain.EmailChangeRequest) error

	// GetLiveRequestByUser returns the user's unexpired request, if any.
	GetLiveRequestByUser(ctx context.Context, userID string, now time.Time) (domain.EmailChangeRequest, error)

	// GetLiveRequestByTokenHash resolves a confirmation token; expired rows
	// are treated as absent.
	GetLiveRequestByTokenHash(ctx context.Context, hash string, now time.Time) (domain.EmailChangeRequest, error)

	// DeleteRequestsForUser removes every pending request for a user (the
	// confirmed one and any stale siblings).
	DeleteRequestsForUser(ctx context.Context, userID string) error

	DeleteRequest(ctx context.Context, id string) error

	// DeleteExpiredRequestsForUser clears lapsed rows that would otherwise
	// block a fresh request on the per-user unique index.
	DeleteExpiredRequestsForUser(ctx context.Context, userID string, now time.Time) error

	// DeleteExpiredRequests is housekeeping.
	DeleteExpiredRequests(ctx context.Context, now time.Time) error
}

type Verifications interface {
	CreateVerification(ctx context.Context, v domain.Verification) error

	// GetLiveVerification resolves an unexpired token of the given purpose.
	GetLiveVerification(ctx context.Context, hash, purpose string, now time.Time) (domain.Verification, error)

	DeleteVerification(ctx context.Context, id string) error

	// DeleteVerificationsForIdentifier clears outstanding tokens when one is
	// consumed.
	DeleteVerificationsForIdentifier(ctx context.Context, identifier, purpose string) error

	// DeleteExpiredVerifications is housekeeping.
	DeleteExpiredVerifications(ctx context.Context, now time.Time) error
}

type AuditLogs interface {
	// CreateAuditEntry appends one record. The audit recorder swallows
	// failures; this method itself reports them normally.
	CreateAuditEntry(ctx context.Context, e domain.AuditEntry) error
}
