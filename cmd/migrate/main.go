package main

import (
	"flag"

	"github.com/pageza/agrisoil/backend/config"
	"github.com/pageza/agrisoil/backend/internal/database"
	"github.com/pageza/agrisoil/backend/internal/logger"
)

func main() {
	migrationsDir := flag.String("dir", "migrations", "Directory holding the ordered .sql migrations")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	if err := database.RunMigrations(db, *migrationsDir, log); err != nil {
		log.Fatal("Migration failed", "error", err)
	}
	log.Info("All migrations applied successfully")
}
