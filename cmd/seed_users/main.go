package main

import (
	"context"
	"errors"
	"os"

	"github.com/pageza/agrisoil/backend/config"
	"github.com/pageza/agrisoil/backend/internal/database"
	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/service"
	"github.com/pageza/agrisoil/backend/internal/types"
)

// Development accounts. Never run against production.
var seedUsers = []struct {
	req   types.RegisterRequest
	admin bool
}{
	{req: types.RegisterRequest{Email: "admin@example.com", FullName: "Admin User", Province: "DKI Jakarta", City: "Jakarta"}, admin: true},
	{req: types.RegisterRequest{Email: "petani.bogor@example.com", FullName: "Budi Santoso", Province: "Jawa Barat", City: "Bogor"}},
	{req: types.RegisterRequest{Email: "petani.malang@example.com", FullName: "Siti Rahayu", Province: "Jawa Timur", City: "Malang"}},
}

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

	if config.IsProduction() {
		log.Fatal("Refusing to seed development users in production")
	}

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.RunMigrations(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	password := os.Getenv("SEED_USER_PASSWORD")
	if password == "" {
		password = "testpassword123"
	}

	ctx := context.Background()
	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, log)
	for _, seed := range seedUsers {
		req := seed.req
		req.Password = password

		user, err := auth.Register(ctx, req)
		if errors.Is(err, service.ErrConflict) {
			log.Info("User already exists, skipping", "email", req.Email)
			continue
		}
		if err != nil {
			log.Error("Failed to create user", "email", req.Email, "error", err)
			continue
		}

		if seed.admin {
			if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_admin", true).Error; err != nil {
				log.Error("Failed to grant admin", "email", req.Email, "error", err)
				continue
			}
		}
		log.Info("Created user", "email", req.Email, "admin", seed.admin)
	}
}
