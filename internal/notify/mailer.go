package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// defaultBudgetPerWindow caps transactional mail per recipient.
	defaultBudgetPerWindow = 10
	defaultBudgetWindow    = time.Hour
)

// Mailer composes and delivers the application's transactional mail. Every
// send passes the per-recipient budget first.
type Mailer struct {
	sender  Sender
	baseURL string
	budget  *budget
}

func NewMailer(sender Sender, baseURL string) *Mailer {
	return &Mailer{
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		budget:  newBudget(defaultBudgetPerWindow, defaultBudgetWindow),
	}
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	if !m.budget.allow(msg.To) {
		return ErrBudgetExceeded
	}
	return m.sender.Send(ctx, msg)
}

// SendEmailVerification mails the signup confirmation link.
func (m *Mailer) SendEmailVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.baseURL, token)
	return m.send(ctx, Message{
		To:      to,
		Subject: "Verify your email address",
		Body:    "Welcome! Confirm your email address by opening this link:\n\n" + link + "\n\nThe link expires in 24 hours.",
	})
}

// SendPasswordReset mails a reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)
	return m.send(ctx, Message{
		To:      to,
		Subject: "Reset your password",
		Body:    "A password reset was requested for your account. Open this link to choose a new password:\n\n" + link + "\n\nIf you did not request this, you can ignore this message.",
	})
}

// SendEmailChangeConfirmation mails the confirmation link to the address the
// user wants to move to. Ownership of the new inbox gates the change.
func (m *Mailer) SendEmailChangeConfirmation(ctx context.Context, newEmail, token string) error {
	link := fmt.Sprintf("%s/confirm-email-change?token=%s", m.baseURL, token)
	return m.send(ctx, Message{
		To:      newEmail,
		Subject: "Confirm your new email address",
		Body:    "A request was made to move an account to this address. Open this link to confirm:\n\n" + link + "\n\nThe link expires in 1 hour.",
	})
}

// SendEmailChangeNotice informs the current address that a change was
// requested, so a hijacked session can't silently walk off with the account.
func (m *Mailer) SendEmailChangeNotice(ctx context.Context, currentEmail, newEmail string) error {
	return m.send(ctx, Message{
		To:      currentEmail,
		Subject: "Email change requested",
		Body:    fmt.Sprintf("A request was made to change your account email to %s. If this wasn't you, change your password immediately.", newEmail),
	})
}

// SendEmailChangeCompleted confirms a finished email change. It goes to both
// the old and the new address.
func (m *Mailer) SendEmailChangeCompleted(ctx context.Context, to, newEmail string) error {
	return m.send(ctx, Message{
		To:      to,
		Subject: "Your email address was changed",
		Body:    fmt.Sprintf("The email address on your account is now %s. If you did not make this change, contact support immediately.", newEmail),
	})
}

// SendAccountDeleted confirms the account and its data are gone.
func (m *Mailer) SendAccountDeleted(ctx context.Context, to string) error {
	return m.send(ctx, Message{
		To:      to,
		Subject: "Your account has been deleted",
		Body:    "Your account and all associated data have been permanently deleted.",
	})
}

// SendPasswordChangedNotice informs the user their password was changed.
func (m *Mailer) SendPasswordChangedNotice(ctx context.Context, to string) error {
	return m.send(ctx, Message{
		To:      to,
		Subject: "Your password was changed",
		Body:    "Your account password was just changed. If this wasn't you, reset your password immediately.",
	})
}
