package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
)

type sessionCodesRepo struct {
	db dbtx
}

const sessionCodeColumns = `id, code, expires_at, used, used_at, used_by_session_id, used_by_user_id, created_by, created_at`

func scanSessionCode(row interface{ Scan(...any) error }, extra ...any) (domain.SessionCode, error) {
	var (
		c         domain.SessionCode
		usedAt    sql.NullTime
		sessionID sql.NullString
		userID    sql.NullString
		createdBy sql.NullString
	)
	dest := []any{&c.ID, &c.Code, &c.ExpiresAt, &c.Used, &usedAt, &sessionID, &userID, &createdBy, &c.CreatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.SessionCode{}, err
	}
	c.UsedAt = mapNullTimePtr(usedAt)
	c.UsedBySessionID = mapNullString(sessionID)
	c.UsedByUserID = mapNullString(userID)
	c.CreatedBy = mapNullString(createdBy)
	return c, nil
}

func (r *sessionCodesRepo) CreateSessionCode(ctx context.Context, c domain.SessionCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_codes (id, code, expires_at, used, used_at, used_by_session_id, used_by_user_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Code, c.ExpiresAt, c.Used,
		mapOptionalTime(c.UsedAt), mapStringNull(c.UsedBySessionID), mapStringNull(c.UsedByUserID),
		mapStringNull(c.CreatedBy), c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *sessionCodesRepo) GetSessionCodeByID(ctx context.Context, id string) (domain.SessionCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionCodeColumns+` FROM session_codes WHERE id = ?`, id)
	c, err := scanSessionCode(row)
	if err != nil {
		return domain.SessionCode{}, mapNotFound(err)
	}
	return c, nil
}

func (r *sessionCodesRepo) GetSessionCodeByCode(ctx context.Context, code string) (domain.SessionCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionCodeColumns+` FROM session_codes WHERE code = ?`, code)
	c, err := scanSessionCode(row)
	if err != nil {
		return domain.SessionCode{}, mapNotFound(err)
	}
	return c, nil
}

func (r *sessionCodesRepo) ListSessionCodes(ctx context.Context) ([]domain.SessionCodeWithCreator, error) {
	// Left join: codes outlive their creating admin, so the creator columns
	// may be absent.
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.code, c.expires_at, c.used, c.used_at, c.used_by_session_id, c.used_by_user_id, c.created_by, c.created_at,
		       u.name, u.email
		FROM session_codes c
		LEFT JOIN users u ON u.id = c.created_by
		ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.SessionCodeWithCreator
	for rows.Next() {
		var name, email sql.NullString
		c, err := scanSessionCode(rows, &name, &email)
		if err != nil {
			return nil, err
		}
		codes = append(codes, domain.SessionCodeWithCreator{
			SessionCode:  c,
			CreatorName:  mapNullString(name),
			CreatorEmail: mapNullString(email),
		})
	}
	return codes, rows.Err()
}

// MarkSessionCodeUsed is the single-use gate: the used flag is only flipped
// where still clear, and the affected-row count tells the caller whether they
// won the race.
func (r *sessionCodesRepo) MarkSessionCodeUsed(ctx context.Context, id, sessionID, userID string, usedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE session_codes
		SET used = 1, used_at = ?, used_by_session_id = ?, used_by_user_id = ?
		WHERE id = ? AND used = 0`,
		usedAt, mapStringNull(sessionID), mapStringNull(userID), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *sessionCodesRepo) DeleteSessionCode(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_codes WHERE id = ?`, id)
	return affectedOrNotFound(res, err)
}
