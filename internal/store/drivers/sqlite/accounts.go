package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, user_id, provider_id, account_id, password_hash, access_token, refresh_token, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a       domain.Account
		hash    sql.NullString
		access  sql.NullString
		refresh sql.NullString
	)
	err := row.Scan(&a.ID, &a.UserID, &a.ProviderID, &a.AccountID, &hash, &access, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, err
	}
	a.PasswordHash = mapNullString(hash)
	a.AccessToken = mapNullString(access)
	a.RefreshToken = mapNullString(refresh)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, provider_id, account_id, password_hash, access_token, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ProviderID, a.AccountID,
		mapStringNull(a.PasswordHash), mapStringNull(a.AccessToken), mapStringNull(a.RefreshToken),
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *accountsRepo) GetCredentialAccount(ctx context.Context, userID string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND provider_id = ?`,
		userID, domain.ProviderCredential)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), accountID)
	return affectedOrNotFound(res, err)
}
