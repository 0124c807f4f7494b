// Package repository содержит реализацию доступа к данным в PostgreSQL.
//
// Наружу выставляется только тот набор возможностей, который даёт
// документное хранилище: фильтры по равенству, сортировка по одному полю,
// лимит, подсчёт и курсор "после последнего документа". Запросов со смещением
// (OFFSET) здесь нет намеренно.
package repository

import (
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jackc/pgerrcode"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductExists возвращается при конфликте slug нового товара.
	ErrProductExists = errors.New("product with this slug already exists")
	// ErrCartNotFound возвращается, если корзина пользователя отсутствует.
	ErrCartNotFound = errors.New("cart not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrBadCursor возвращается при курсоре, не соответствующем текущей сортировке.
	ErrBadCursor = errors.New("invalid pagination cursor")
)

// PostgresRepository предоставляет доступ к хранилищу данных магазина в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const cursorSeparator = "\x1f"

// encodeCursor упаковывает позицию последнего документа страницы в непрозрачный токен.
// Токен привязан к полю и направлению сортировки: повторное использование
// с другой сортировкой отклоняется как ErrBadCursor. Значение сортировки
// кодируется отдельно: разделитель не должен встречаться в данных.
func encodeCursor(field string, descending bool, sortValue, id string) string {
	dir := "asc"
	if descending {
		dir = "desc"
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(sortValue))
	raw := strings.Join([]string{field, dir, encoded, id}, cursorSeparator)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(token, field string, descending bool) (sortValue, id string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrBadCursor
	}

	parts := strings.Split(string(raw), cursorSeparator)
	if len(parts) != 4 {
		return "", "", ErrBadCursor
	}

	dir := "asc"
	if descending {
		dir = "desc"
	}
	if parts[0] != field || parts[1] != dir {
		return "", "", ErrBadCursor
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", ErrBadCursor
	}

	return string(decoded), parts[3], nil
}
