package sqlite

import (
	"context"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
)

type emailChangesRepo struct {
	db dbtx
}

const emailChangeColumns = `id, user_id, current_email, new_email, token_hash, expires_at, created_at`

func scanEmailChange(row interface{ Scan(...any) error }) (domain.EmailChangeRequest, error) {
	var r domain.EmailChangeRequest
	err := row.Scan(&r.ID, &r.UserID, &r.CurrentEmail, &r.NewEmail, &r.TokenHash, &r.ExpiresAt, &r.CreatedAt)
	return r, err
}

func (r *emailChangesRepo) CreateEmailChangeRequest(ctx context.Context, req domain.EmailChangeRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_change_requests (id, user_id, current_email, new_email, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.UserID, req.CurrentEmail, req.NewEmail, req.TokenHash, req.ExpiresAt, req.CreatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *emailChangesRepo) GetLiveRequestByUser(ctx context.Context, userID string, now time.Time) (domain.EmailChangeRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+emailChangeColumns+` FROM email_change_requests
		 WHERE user_id = ? AND expires_at > ? ORDER BY created_at DESC LIMIT 1`,
		userID, now)
	req, err := scanEmailChange(row)
	if err != nil {
		return domain.EmailChangeRequest{}, mapNotFound(err)
	}
	return req, nil
}

func (r *emailChangesRepo) GetLiveRequestByTokenHash(ctx context.Context, hash string, now time.Time) (domain.EmailChangeRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+emailChangeColumns+` FROM email_change_requests
		 WHERE token_hash = ? AND expires_at > ?`,
		hash, now)
	req, err := scanEmailChange(row)
	if err != nil {
		return domain.EmailChangeRequest{}, mapNotFound(err)
	}
	return req, nil
}

func (r *emailChangesRepo) DeleteRequestsForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_change_requests WHERE user_id = ?`, userID)
	return err
}

func (r *emailChangesRepo) DeleteRequest(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM email_change_requests WHERE id = ?`, id)
	return affectedOrNotFound(res, err)
}

func (r *emailChangesRepo) DeleteExpiredRequestsForUser(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_change_requests WHERE user_id = ? AND expires_at < ?`, userID, now)
	return err
}

func (r *emailChangesRepo) DeleteExpiredRequests(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_change_requests WHERE expires_at < ?`, now)
	return err
}
