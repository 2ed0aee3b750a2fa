package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/idx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

// auditClass fixes the category and severity for each event type so callers
// can't misfile an event.
var auditClass = map[domain.AuditEventType]struct {
	category domain.AuditCategory
	severity domain.AuditSeverity
}{
	domain.AuditLoginSuccess:          {domain.AuditCategoryAuth, domain.AuditSeverityInfo},
	domain.AuditLoginFailure:          {domain.AuditCategoryAuth, domain.AuditSeverityWarning},
	domain.AuditLogout:                {domain.AuditCategoryAuth, domain.AuditSeverityInfo},
	domain.AuditSignup:                {domain.AuditCategoryAuth, domain.AuditSeverityInfo},
	domain.AuditEmailVerification:     {domain.AuditCategoryAuth, domain.AuditSeverityInfo},
	domain.AuditPasswordChange:        {domain.AuditCategoryUser, domain.AuditSeverityInfo},
	domain.AuditPasswordResetRequest:  {domain.AuditCategoryAuth, domain.AuditSeverityInfo},
	domain.AuditPasswordResetComplete: {domain.AuditCategoryAuth, domain.AuditSeverityInfo},
	domain.AuditTwoFactorEnabled:      {domain.AuditCategoryUser, domain.AuditSeverityInfo},
	domain.AuditTwoFactorDisabled:     {domain.AuditCategoryUser, domain.AuditSeverityWarning},
	domain.AuditSessionRevoked:        {domain.AuditCategoryUser, domain.AuditSeverityInfo},
	domain.AuditAllSessionsRevoked:    {domain.AuditCategoryUser, domain.AuditSeverityWarning},
	domain.AuditEmailChangeRequest:    {domain.AuditCategoryUser, domain.AuditSeverityInfo},
	domain.AuditEmailChangeComplete:   {domain.AuditCategoryUser, domain.AuditSeverityInfo},
	domain.AuditAccountDeleted:        {domain.AuditCategoryUser, domain.AuditSeverityWarning},
	domain.AuditUserCreated:           {domain.AuditCategoryAdmin, domain.AuditSeverityInfo},
	domain.AuditUserBanned:            {domain.AuditCategoryAdmin, domain.AuditSeverityWarning},
	domain.AuditUserUnbanned:          {domain.AuditCategoryAdmin, domain.AuditSeverityInfo},
	domain.AuditUserDeleted:           {domain.AuditCategoryAdmin, domain.AuditSeverityCritical},
	domain.AuditUserRoleChanged:       {domain.AuditCategoryAdmin, domain.AuditSeverityWarning},
	domain.AuditCodeGenerated:         {domain.AuditCategoryAdmin, domain.AuditSeverityInfo},
	domain.AuditCodeInvalidated:       {domain.AuditCategoryAdmin, domain.AuditSeverityInfo},
	domain.AuditCodeDeleted:           {domain.AuditCategoryAdmin, domain.AuditSeverityInfo},
	domain.AuditSuspiciousActivity:    {domain.AuditCategorySecurity, domain.AuditSeverityCritical},
	domain.AuditRateLimitExceeded:     {domain.AuditCategorySecurity, domain.AuditSeverityWarning},
	domain.AuditInvalidToken:          {domain.AuditCategorySecurity, domain.AuditSeverityWarning},
}

// RequestMeta carries the origin details extracted from the HTTP layer.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditEvent is the caller-facing shape; category and severity are derived
// from the type at record time.
type AuditEvent struct {
	Type domain.AuditEventType

	ActorID    string
	ActorEmail string
	ActorRole  string

	TargetUserID    string
	TargetUserEmail string

	SessionID    string
	Description  string
	Success      bool
	ErrorMessage string
	Metadata     map[string]any

	Meta RequestMeta
}

// AuditRecorder appends audit entries. Recording never fails the calling
// operation: a dropped audit row is logged and swallowed so the user flow
// proceeds.
type AuditRecorder struct {
	Store store.Store
}

func (r *AuditRecorder) Record(ctx context.Context, ev AuditEvent) {
	class, ok := auditClass[ev.Type]
	if !ok {
		class.category = domain.AuditCategorySecurity
		class.severity = domain.AuditSeverityWarning
	}

	entry := domain.AuditEntry{
		ID:              idx.New().String(),
		EventType:       ev.Type,
		Category:        class.category,
		Severity:        class.severity,
		UserID:          ev.ActorID,
		UserEmail:       ev.ActorEmail,
		UserRole:        ev.ActorRole,
		TargetUserID:    ev.TargetUserID,
		TargetUserEmail: ev.TargetUserEmail,
		IPAddress:       ev.Meta.IPAddress,
		UserAgent:       ev.Meta.UserAgent,
		SessionID:       ev.SessionID,
		Description:     ev.Description,
		Success:         ev.Success,
		ErrorMessage:    ev.ErrorMessage,
		Metadata:        ev.Metadata,
		CreatedAt:       time.Now().UTC(),
	}

	if err := r.Store.AuditLogs().CreateAuditEntry(ctx, entry); err != nil {
		slogx.FromContext(ctx).Error("failed to record audit entry",
			slog.String("event_type", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}
