// Command migrate runs goose migrations against the configured database.
//
// Usage: migrate [up|down|status|redo|version] [args]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/migration"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", "./configs", "directory holding app.env")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-config dir] up|down|status|redo|version [args]")
		os.Exit(2)
	}

	config, err := configpkg.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)
	ctx := logger.WithContext(context.Background())

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}
	defer db.Close()

	if err := migration.Run(ctx, db, args[0], args[1:]...); err != nil {
		logger.Fatal().Err(err).Str("command", args[0]).Msg("migration failed")
	}

	logger.Info().Str("command", args[0]).Msg("migration finished")
}
