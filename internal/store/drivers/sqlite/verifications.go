package sqlite

import (
	"context"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
)

type verificationsRepo struct {
	db dbtx
}

func (r *verificationsRepo) CreateVerification(ctx context.Context, v domain.Verification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verifications (id, identifier, purpose, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Identifier, v.Purpose, v.TokenHash, v.ExpiresAt, v.CreatedAt,
	)
	return err
}

func (r *verificationsRepo) GetLiveVerification(ctx context.Context, hash, purpose string, now time.Time) (domain.Verification, error) {
	var v domain.Verification
	err := r.db.QueryRowContext(ctx, `
		SELECT id, identifier, purpose, token_hash, expires_at, created_at
		FROM verifications
		WHERE token_hash = ? AND purpose = ? AND expires_at > ?`,
		hash, purpose, now,
	).Scan(&v.ID, &v.Identifier, &v.Purpose, &v.TokenHash, &v.ExpiresAt, &v.CreatedAt)
	if err != nil {
		return domain.Verification{}, mapNotFound(err)
	}
	return v, nil
}

func (r *verificationsRepo) DeleteVerification(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE id = ?`, id)
	return affectedOrNotFound(res, err)
}

func (r *verificationsRepo) DeleteVerificationsForIdentifier(ctx context.Context, identifier, purpose string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verifications WHERE identifier = ? AND purpose = ?`, identifier, purpose)
	return err
}

func (r *verificationsRepo) DeleteExpiredVerifications(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE expires_at < ?`, now)
	return err
}
