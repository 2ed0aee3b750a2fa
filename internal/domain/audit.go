package domain

import "time"

// AuditEventType is the closed set of recordable events.
type AuditEventType string

const (
	AuditLoginSuccess          AuditEventType = "login_success"
	AuditLoginFailure          AuditEventType = "login_failure"
	AuditLogout                AuditEventType = "logout"
	AuditSignup                AuditEventType = "signup"
	AuditEmailVerification     AuditEventType = "email_verification"
	AuditPasswordChange        AuditEventType = "password_change"
	AuditPasswordResetRequest  AuditEventType = "password_reset_request"
	AuditPasswordResetComplete AuditEventType = "password_reset_complete"
	AuditTwoFactorEnabled      AuditEventType = "two_factor_enabled"
	AuditTwoFactorDisabled     AuditEventType = "two_factor_disabled"
	AuditSessionRevoked        AuditEventType = "session_revoked"
	AuditAllSessionsRevoked    AuditEventType = "all_sessions_revoked"
	AuditEmailChangeRequest    AuditEventType = "email_change_request"
	AuditEmailChangeComplete   AuditEventType = "email_change_complete"
	AuditAccountDeleted        AuditEventType = "account_deleted"
	AuditUserCreated           AuditEventType = "user_created"
	AuditUserBanned            AuditEventType = "user_banned"
	AuditUserUnbanned          AuditEventType = "user_unbanned"
	AuditUserDeleted           AuditEventType = "user_deleted"
	AuditUserRoleChanged       AuditEventType = "user_role_changed"
	AuditCodeGenerated         AuditEventType = "session_code_generated"
	AuditCodeInvalidated       AuditEventType = "session_code_invalidated"
	AuditCodeDeleted           AuditEventType = "session_code_deleted"
	AuditSuspiciousActivity    AuditEventType = "suspicious_activity"
	AuditRateLimitExceeded     AuditEventType = "rate_limit_exceeded"
	AuditInvalidToken          AuditEventType = "invalid_token"
)

// AuditCategory groups events for filtering.
type AuditCategory string

const (
	AuditCategoryAuth     AuditCategory = "auth"
	AuditCategoryAdmin    AuditCategory = "admin"
	AuditCategoryUser     AuditCategory = "user"
	AuditCategorySecurity AuditCategory = "security"
)

// AuditSeverity ranks events for alerting.
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityCritical AuditSeverity = "critical"
)

// AuditEntry is an immutable append-only record. Normal application logic
// never updates or deletes rows.
type AuditEntry struct {
	ID        string
	EventType AuditEventType
	Category  AuditCategory
	Severity  AuditSeverity

	// Actor, all optional (e.g. failed logins have no user id).
	UserID    string
	UserEmail string
	UserRole  string

	// Target, optional; set for admin-on-user actions.
	TargetUserID    string
	TargetUserEmail string

	IPAddress string
	UserAgent string
	SessionID string

	Description  string
	Success      bool
	ErrorMessage string
	Metadata     map[string]any

	CreatedAt time.Time
}
