// cmd/tools/dbmigrate/main.go
package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/db"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config.yaml (database.filename is used)")
		dbPath     = flag.String("db", "", "Path to SQLite database, overrides -config")
		command    = flag.String("command", "", "Command to run (up, down, steps, force, version)")
		arg        = flag.String("n", "", "Step count for steps, version for force")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	path := *dbPath
	if path == "" && *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		path = cfg.Database.Filename
	}
	if path == "" || *command == "" {
		log.Error().Msg("-command and one of -db or -config are required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	absDB, err := filepath.Abs(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database path")
	}
	if err := os.MkdirAll(filepath.Dir(absDB), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	sqlDB, err := db.OpenSQLite(absDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer sqlDB.Close()

	m, err := db.NewMigrator(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrate instance")
	}

	logger := log.With().Str("db", absDB).Str("command", *command).Logger()

	switch *command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		n, convErr := strconv.Atoi(*arg)
		if convErr != nil || n == 0 {
			logger.Fatal().Str("n", *arg).Msg("steps requires a non-zero -n")
		}
		err = m.Steps(n)
	case "force":
		v, convErr := strconv.Atoi(*arg)
		if convErr != nil {
			logger.Fatal().Str("n", *arg).Msg("force requires a version in -n")
		}
		err = m.Force(v)
	case "version":
		version, dirty, vErr := m.Version()
		if errors.Is(vErr, migrate.ErrNilVersion) {
			logger.Info().Msg("No migrations applied")
			return
		}
		if vErr != nil {
			logger.Fatal().Err(vErr).Msg("Failed to get version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current version")
		return
	default:
		logger.Fatal().Msg("Unknown command")
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("Migration failed")
	}
	logger.Info().Msg("Migration complete")
}
