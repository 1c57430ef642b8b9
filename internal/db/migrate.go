package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/school-office/internal/db/migrations"
	"github.com/pressly/goose/v3"
)

// Migrate накатывает встроенные миграции.
func Migrate(ctx context.Context, database *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, ".")
}

// MigrateDown откатывает последнюю миграцию.
func MigrateDown(ctx context.Context, database *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.DownContext(ctx, database, ".")
}

func MigrationStatus(ctx context.Context, database *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.StatusContext(ctx, database, ".")
}
