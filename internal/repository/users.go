package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/luckybee/storefront-system/internal/model"
)

const userColumns = `id, email, display_name, password_hash, role, account_status, phone, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash,
		&u.Role, &u.AccountStatus, &u.Phone, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUser создаёт нового пользователя со статусом pending.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, role, account_status, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash,
		string(u.Role), string(u.AccountStatus), u.Phone,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetUser возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &u, nil
}

// ListUsers возвращает пользователей от новых к старым.
// Пустой статус означает всех пользователей.
func (r *PostgresRepository) ListUsers(ctx context.Context, status model.AccountStatus) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}

	if status != "" {
		query += ` WHERE account_status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	var users []model.User
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}

	return users, nil
}

// CountUsers возвращает число пользователей. Пустой статус означает всех пользователей.
func (r *PostgresRepository) CountUsers(ctx context.Context, status model.AccountStatus) (int, error) {
	query := `SELECT COUNT(*) FROM users`
	args := []any{}

	if status != "" {
		query += ` WHERE account_status = $1`
		args = append(args, string(status))
	}

	var count int
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// ListRecentUsers возвращает последних пользователей в указанном статусе
// от новых к старым.
func (r *PostgresRepository) ListRecentUsers(ctx context.Context, status model.AccountStatus, limit int) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE account_status = $1 ORDER BY created_at DESC LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select recent users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// UpdateUserStatus меняет статус аккаунта и обновляет updated_at.
func (r *PostgresRepository) UpdateUserStatus(ctx context.Context, id string, status model.AccountStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE users SET account_status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
