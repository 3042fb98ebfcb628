package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"campustt/internal/repository"
	"campustt/pkg/config"
	"campustt/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal("cannot open repository", zap.Error(err))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))

	srv := newServer(repo, cfg, log)
	srv.register(router)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("query API listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	if cfg.DatabaseURL == "" {
		return repository.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return repository.NewPostgres(pool), nil
}
