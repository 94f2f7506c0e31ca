package main

import (
	"context"

	"github.com/pageza/agrisoil/backend/config"
	"github.com/pageza/agrisoil/backend/internal/database"
	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/service"
)

func main() {
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
	if err := database.RunMigrations(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	created, err := service.NewSoilReferenceService(db, log).Seed(context.Background())
	if err != nil {
		log.Fatal("Failed to seed soil type references", "error", err)
	}
	log.Info("Seeded soil type references", "created", created, "total", len(service.DefaultSoilReferences()))
}
