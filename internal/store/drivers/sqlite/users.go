package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, name, email, email_verified, role, anonymous,
	banned, ban_reason, ban_expires, two_factor_secret, two_factor_enabled,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u          domain.User
		banReason  sql.NullString
		banExpires sql.NullTime
		tfSecret   sql.NullString
		tfEnabled  sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Role, &u.Anonymous,
		&u.Banned, &banReason, &banExpires, &tfSecret, &tfEnabled,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.BanReason = mapNullString(banReason)
	u.BanExpires = mapNullTimePtr(banExpires)
	u.TwoFactorSecret = mapNullStringPtr(tfSecret)
	u.TwoFactorEnabled = mapNullTimePtr(tfEnabled)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, email_verified, role, anonymous,
			banned, ban_reason, ban_expires, two_factor_secret, two_factor_enabled,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.EmailVerified, u.Role, u.Anonymous,
		u.Banned, mapStringNull(u.BanReason), mapOptionalTime(u.BanExpires),
		mapOptionalString(u.TwoFactorSecret), mapOptionalTime(u.TwoFactorEnabled),
		u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdateEmail(ctx context.Context, userID, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, email_verified = 1, updated_at = ? WHERE id = ?`,
		strings.ToLower(email), time.Now().UTC(), userID)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return affectedOrNotFound(res, err)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID, role string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().UTC(), userID)
	return affectedOrNotFound(res, err)
}

func (r *usersRepo) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = ?, updated_at = ? WHERE id = ?`,
		verified, time.Now().UTC(), userID)
	return affectedOrNotFound(res, err)
}

func (r *usersRepo) SetBan(ctx context.Context, userID string, banned bool, reason string, expires *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET banned = ?, ban_reason = ?, ban_expires = ?, updated_at = ? WHERE id = ?`,
		banned, mapStringNull(reason), mapOptionalTime(expires), time.Now().UTC(), userID)
	return affectedOrNotFound(res, err)
}

func (r *usersRepo) SetTwoFactor(ctx context.Context, userID string, secret *string, enabled *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_factor_secret = ?, two_factor_enabled = ?, updated_at = ? WHERE id = ?`,
		mapOptionalString(secret), mapOptionalTime(enabled), time.Now().UTC(), userID)
	return affectedOrNotFound(res, err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return affectedOrNotFound(res, err)
}

func (r *usersRepo) ListUsers(ctx context.Context, f store.UserFilter) ([]domain.User, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if f.Role != "" {
		where = append(where, `role = ?`)
		args = append(args, f.Role)
	}
	switch f.Status {
	case "banned":
		where = append(where, `banned = 1`)
	case "active":
		where = append(where, `banned = 0`)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+clause+
			` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *usersRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *usersRepo) LiftExpiredBans(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET banned = 0, ban_reason = NULL, ban_expires = NULL, updated_at = ?
		WHERE banned = 1 AND ban_expires IS NOT NULL AND ban_expires < ?`,
		now, now)
	return err
}

// affectedOrNotFound folds a zero-row UPDATE/DELETE into ErrNotFound so
// services get a consistent signal for missing rows.
func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
