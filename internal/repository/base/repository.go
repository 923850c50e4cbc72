package base

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UniqueViolation код ошибки PostgreSQL для нарушения уникального индекса
const UniqueViolation = "23505"

// Builder любой goqu dataset, который умеет собрать SQL
type Builder interface {
	ToSQL() (string, []interface{}, error)
}

// Repository базовый репозиторий с общими методами
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый базовый репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Dialect goqu-диалект PostgreSQL с плейсхолдерами $1, $2...
func Dialect() goqu.DialectWrapper {
	return goqu.Dialect("postgres")
}

// Query выполняет запрос и возвращает множество строк
func (r *Repository) Query(ctx context.Context, q Builder) (pgx.Rows, error) {
	query, args, err := q.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.pool.Query(ctx, query, args...)
}

// QueryRow выполняет запрос и возвращает одну строку
func (r *Repository) QueryRow(ctx context.Context, q Builder) pgx.Row {
	query, args, err := q.ToSQL()
	if err != nil {
		return errRow{err: fmt.Errorf("build query: %w", err)}
	}
	return r.pool.QueryRow(ctx, query, args...)
}

// ExecAffected выполняет команду и возвращает количество затронутых строк
func (r *Repository) ExecAffected(ctx context.Context, q Builder) (int64, error) {
	return ExecTx(ctx, r.pool, q)
}

// WithTx выполняет fn в транзакции
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Execer общий интерфейс пула и транзакции
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ExecTx собирает и выполняет команду на пуле или в транзакции
func ExecTx(ctx context.Context, db Execer, q Builder) (int64, error) {
	query, args, err := q.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation проверяет нарушение уникального индекса
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolation
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
