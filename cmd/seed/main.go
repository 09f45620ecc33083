// Package main creates the administrator account, or grants the admin role
// to an existing user with the same email.
package main

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FatPandaC8/Vexpo/config"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/internal/users"
	"github.com/FatPandaC8/Vexpo/pkg/database"
	"github.com/FatPandaC8/Vexpo/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Store.Driver != config.DriverPostgres {
		logger.Fatal("seed requires STORE_DRIVER=postgres")
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Admin.Email))
	if email == "" || cfg.Admin.Password == "" {
		logger.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	repo := users.NewRepository(pool)
	existing, err := repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if _, err := repo.AssignRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			logger.Fatal("assign admin role", zap.Error(err))
		}
		logger.Info("admin role granted", zap.String("user_id", existing.ID.String()), zap.String("email", email))
		return
	case !errors.Is(err, store.ErrNotFound):
		logger.Fatal("lookup admin", zap.Error(err))
	}

	hash, err := utils.HashPassword(cfg.Admin.Password)
	if err != nil {
		logger.Fatal("hash password", zap.Error(err))
	}
	name := cfg.Admin.Name
	if name == "" {
		name = "Administrator"
	}
	u := &models.User{Email: email, Name: name, PasswordHash: &hash}
	if err := repo.Create(ctx, u, models.RoleAdmin); err != nil {
		logger.Fatal("create admin", zap.Error(err))
	}
	logger.Info("admin created", zap.String("user_id", u.ID.String()), zap.String("email", email))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
