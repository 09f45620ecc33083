// Package main runs the Vexpo HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FatPandaC8/Vexpo/config"
	"github.com/FatPandaC8/Vexpo/internal/auth"
	"github.com/FatPandaC8/Vexpo/internal/booths"
	"github.com/FatPandaC8/Vexpo/internal/companies"
	"github.com/FatPandaC8/Vexpo/internal/expos"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/realtime"
	"github.com/FatPandaC8/Vexpo/internal/registrations"
	"github.com/FatPandaC8/Vexpo/internal/server"
	"github.com/FatPandaC8/Vexpo/internal/store/memory"
	"github.com/FatPandaC8/Vexpo/internal/users"
	"github.com/FatPandaC8/Vexpo/internal/worker"
	"github.com/FatPandaC8/Vexpo/pkg/database"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/queue"
	"github.com/FatPandaC8/Vexpo/pkg/redis"
	"github.com/FatPandaC8/Vexpo/pkg/storage"
	"github.com/FatPandaC8/Vexpo/pkg/utils"
	"github.com/FatPandaC8/Vexpo/pkg/validator"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := validator.Register(); err != nil {
		logger.Fatal("validator", zap.Error(err))
	}

	ctx := context.Background()
	opts := server.Options{
		Hasher:      utils.DefaultHasher,
		Grid:        models.FloorMap{Rows: cfg.FloorMap.Rows, Cols: cfg.FloorMap.Cols},
		Limits:      pagination.Limits{Default: cfg.Pagination.DefaultLimit, Max: cfg.Pagination.MaxLimit},
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		FrontendURL: cfg.Google.FrontendURL,
		Logger:      logger,
	}

	// Store
	var stores server.Stores
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		db := memory.New()
		stores = server.Stores{
			Users:         db.Users(),
			Expos:         db.Expos(),
			Booths:        db.Booths(),
			Companies:     db.Companies(),
			Registrations: db.Registrations(),
		}
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		stores = server.Stores{
			Users:         users.NewRepository(pool),
			Expos:         expos.NewRepository(pool),
			Booths:        booths.NewRepository(pool),
			Companies:     companies.NewRepository(pool),
			Registrations: registrations.NewRepository(pool),
		}
		opts.Health = pool.Ping
	}

	// Redis: token deny-list, realtime fan-out, clean-up queue
	var revoker auth.Revoker
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		revoker = auth.NewRedisRevoker(rdb.Client)
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		opts.Hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		logger.Warn("redis not configured; logout is client-side and realtime is single-instance")
		opts.Hub = realtime.NewHub(logger, nil, nil)
	}
	opts.JWT = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expire(), cfg.JWT.TempExpire(), revoker)

	// Booth model storage
	if cfg.AWS.Enabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ModelsBucket:         cfg.AWS.ModelsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			opts.Storage = s3Client
			if rdb != nil {
				opts.Cleaner = queue.NewQueue(rdb.Client, logger)
			} else {
				opts.Cleaner = worker.NewInlineCleaner(s3Client, logger)
			}
		}
	}

	// Google sign-in
	if gp := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	}); gp != nil {
		opts.Provider = gp
	}

	router := server.NewRouter(server.NewServices(stores, opts), opts)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
