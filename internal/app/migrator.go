package app

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrator обёртка над goose
type Migrator struct {
	db     *sql.DB
	fsys   fs.FS
	dir    string
	logger *zap.Logger
}

// NewMigrator создаёт мигратор. Пустой migrationsDir - встроенные в бинарник миграции.
func NewMigrator(pool *pgxpool.Pool, migrationsDir string, logger *zap.Logger) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}

	mg := &Migrator{
		// Goose работает с *sql.DB, поэтому создаём его из пула
		db:     stdlib.OpenDBFromPool(pool),
		fsys:   embeddedMigrations,
		dir:    "migrations",
		logger: logger,
	}
	if migrationsDir != "" {
		mg.fsys = os.DirFS(migrationsDir)
		mg.dir = "."
	}
	return mg, nil
}

// Run применяет все pending миграции
func (mg *Migrator) Run(ctx context.Context) error {
	mg.logger.Info("Applying database migrations")

	goose.SetBaseFS(mg.fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, mg.db, mg.dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := mg.Version(ctx)
	if err != nil {
		return err
	}
	mg.logger.Info("Migrations applied", zap.Int64("version", version))
	return nil
}

// Version показывает текущую версию миграций
func (mg *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, mg.db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// Close закрывает sql.DB, но не пул (он управляется в main)
func (mg *Migrator) Close() error {
	if mg.db != nil {
		return mg.db.Close()
	}
	return nil
}
