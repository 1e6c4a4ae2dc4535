// Package migrations применяет встроенные SQL миграции по порядку имен файлов.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/psqlbuilder"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

var (
	// ErrReadMigrations возвращается, когда не удалось прочитать встроенные файлы
	ErrReadMigrations = errors.New("migrations: failed to read embedded files")

	// ErrApplyMigration возвращается, когда миграция завершилась ошибкой
	ErrApplyMigration = errors.New("migrations: failed to apply migration")
)

const createVersionsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// TransactionManager каждая миграция выполняется в своей транзакции
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
}

// Names имена встроенных миграций в порядке применения
func Names() ([]string, error) {
	entries, err := migrationsFS.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadMigrations, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Migrate применяет еще не примененные миграции и записывает их в schema_migrations
func Migrate(ctx context.Context, db dbmetrics.DBExecutor, txManager TransactionManager, logger Logger) error {
	if _, err := db.ExecContext(ctx, createVersionsTable); err != nil {
		return fmt.Errorf("%w: create schema_migrations: %v", ErrApplyMigration, err)
	}

	names, err := Names()
	if err != nil {
		return err
	}

	for _, name := range names {
		err := txManager.Do(ctx, func(txCtx context.Context) error {
			executor := dbmetrics.GetExecutor(txCtx, db)

			query, args, err := psqlbuilder.Select("COUNT(*)").
				From("schema_migrations").
				Where(squirrel.Eq{"name": name}).
				ToSql()
			if err != nil {
				return err
			}

			var applied int
			if err := executor.QueryRowContext(txCtx, query, args...).Scan(&applied); err != nil {
				return err
			}
			if applied > 0 {
				return nil
			}

			body, err := migrationsFS.ReadFile("sql/" + name)
			if err != nil {
				return err
			}
			if _, err := executor.ExecContext(txCtx, string(body)); err != nil {
				return err
			}

			query, args, err = psqlbuilder.Insert("schema_migrations").
				Columns("name").
				Values(name).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := executor.ExecContext(txCtx, query, args...); err != nil {
				return err
			}

			logger.Info("Migration %s applied", name)
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrApplyMigration, name, err)
		}
	}

	return nil
}
