// Package migration applies the embedded database schema with goose.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const timeout = 60 * time.Second

// Run executes a goose command ("up", "down", "status", ...) against db.
func Run(ctx context.Context, db *sql.DB, command string, args ...string) error {
	l := zerolog.Ctx(ctx)

	migrationCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{l})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.RunContext(migrationCtx, command, db, "migrations", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	return nil
}

// Up migrates the schema to the latest version.
func Up(ctx context.Context, db *sql.DB) error {
	return Run(ctx, db, "up")
}

// gooseLogger routes goose output to zerolog.
type gooseLogger struct {
	l *zerolog.Logger
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Fatal().Msgf(format, v...)
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Info().Msgf(format, v...)
}
