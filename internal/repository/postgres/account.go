package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/classhub/classhub-server/internal/model"
)

var _ model.AccountStore = (*AccountRepository)(nil)

const accountColumns = `id, email, password_hash, first_name, last_name, role, active, email_verified,
	failed_logins, locked_until, last_login_at, verify_token, reset_token, reset_token_expires,
	created_at, updated_at, deactivated_at`

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

type AccountRepository struct {
	db *Connection
}

func NewAccountRepository(db *Connection) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

func scanAccount(row rowScanner) (model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.Active, &a.EmailVerified,
		&a.FailedLogins, &a.LockedUntil, &a.LastLoginAt, &a.VerifyToken, &a.ResetToken, &a.ResetTokenExpires,
		&a.CreatedAt, &a.UpdatedAt, &a.DeactivatedAt,
	)
	return a, err
}

func (r *AccountRepository) Create(ctx context.Context, account model.Account) (model.Account, error) {
	query := `INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, active,
				email_verified, failed_logins, verify_token, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING ` + accountColumns

	saved, err := scanAccount(r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.FirstName, account.LastName,
		account.Role, account.Active, account.EmailVerified, account.FailedLogins,
		account.VerifyToken, account.CreatedAt, account.UpdatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.Account{}, model.ErrEmailTaken
		}
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return saved, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND deactivated_at IS NULL`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByVerifyToken(ctx context.Context, token string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE verify_token = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by verify token: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByResetToken(ctx context.Context, token string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE reset_token = $1 AND reset_token_expires > NOW()`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by reset token: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) Update(ctx context.Context, account model.Account) (model.Account, error) {
	query := `UPDATE accounts
			  SET email = $2, first_name = $3, last_name = $4, role = $5, active = $6,
				  email_verified = $7, verify_token = $8, reset_token = $9, reset_token_expires = $10,
				  updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + accountColumns

	saved, err := scanAccount(r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.FirstName, account.LastName, account.Role,
		account.Active, account.EmailVerified, account.VerifyToken,
		account.ResetToken, account.ResetTokenExpires,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.Account{}, model.ErrEmailTaken
		}
		return model.Account{}, fmt.Errorf("failed to update account: %w", err)
	}

	return saved, nil
}

// UpdatePassword replaces the password hash and clears any outstanding reset
// token and lockout in the same statement.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE accounts
			  SET password_hash = $2, reset_token = NULL, reset_token_expires = NULL,
				  failed_logins = 0, locked_until = NULL, updated_at = NOW()
			  WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return model.ErrNotFound
	}

	return nil
}

// RecordLoginFailure increments the failure counter atomically and arms the
// lockout once the counter reaches threshold. Returns the new counter value.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration) (int, error) {
	query := `UPDATE accounts
			  SET failed_logins = failed_logins + 1,
				  locked_until = CASE WHEN failed_logins + 1 >= $2 THEN $3 ELSE locked_until END,
				  updated_at = NOW()
			  WHERE id = $1
			  RETURNING failed_logins`

	var attempts int
	lockUntil := time.Now().Add(lockFor)
	if err := r.db.QueryRowContext(ctx, query, id, threshold, lockUntil).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}

	return attempts, nil
}

func (r *AccountRepository) ResetLoginFailures(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts
			  SET failed_logins = 0, locked_until = NULL, last_login_at = NOW(), updated_at = NOW()
			  WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}

	return nil
}

// Deactivate soft-deletes the account. The email is rewritten to a
// placeholder derived from the id so the address can be registered again,
// and outstanding tokens are dropped. The row itself stays so audit
// history keeps resolving to an account.
func (r *AccountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts
			  SET active = FALSE, deactivated_at = NOW(),
				  email = 'deleted-' || id::text || '@deactivated.invalid',
				  verify_token = NULL, reset_token = NULL, reset_token_expires = NULL,
				  updated_at = NOW()
			  WHERE id = $1 AND deactivated_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) Reactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts
			  SET active = TRUE, deactivated_at = NULL, updated_at = NOW()
			  WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reactivate account: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) List(ctx context.Context, filter model.AccountFilter, page model.Page) ([]model.Account, int, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	listQuery := builder.Select(accountColumns).From("accounts")
	countQuery := builder.Select("COUNT(*)").From("accounts")

	if filter.Role != "" {
		listQuery = listQuery.Where(sq.Eq{"role": filter.Role})
		countQuery = countQuery.Where(sq.Eq{"role": filter.Role})
	}
	if filter.Active != nil {
		listQuery = listQuery.Where(sq.Eq{"active": *filter.Active})
		countQuery = countQuery.Where(sq.Eq{"active": *filter.Active})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		search := sq.Or{
			sq.ILike{"email": pattern},
			sq.ILike{"first_name": pattern},
			sq.ILike{"last_name": pattern},
		}
		listQuery = listQuery.Where(search)
		countQuery = countQuery.Where(search)
	}

	query, args, err := listQuery.
		OrderBy("created_at DESC").
		Limit(uint64(page.Limit())).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build account list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]model.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate account rows: %w", err)
	}

	query, args, err = countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build account count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return accounts, total, nil
}

func (r *AccountRepository) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	query := `SELECT role, COUNT(*) FROM accounts WHERE deactivated_at IS NULL GROUP BY role`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Role]int)
	for rows.Next() {
		var role model.Role
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan role count row: %w", err)
		}
		counts[role] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role count rows: %w", err)
	}

	return counts, nil
}
