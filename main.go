package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"capitalapi/internal/authz"
	"capitalapi/internal/chat"
	"capitalapi/internal/config"
	"capitalapi/internal/database"
	"capitalapi/internal/handlers"
	"capitalapi/internal/ledger"
	"capitalapi/internal/middleware"
	"capitalapi/internal/orgs"
	"capitalapi/internal/registry"
	"capitalapi/internal/routes"
	"capitalapi/internal/storage/postgres"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	if err := database.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	if err := database.RunMigrations(cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	// Core services
	store := postgres.New(database.DB)
	reg := registry.New(store)
	az := authz.New(reg)

	handlers.Store = store
	handlers.Registry = reg
	handlers.Authz = az
	handlers.Ledger = ledger.New(store, az)
	handlers.Orgs = orgs.New(store, az)
	handlers.Chat = chat.New(&chat.RedisStore{Rdb: rdb}, az)
	handlers.Rdb = rdb

	middleware.PublicKey = handlers.PublicKey
	middleware.Rdb = rdb
	middleware.AllowedOrigins = cfg.AllowedOrigins

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: routes.SetupRoutes(),
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	// Wait for SIGINT/SIGTERM, then drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	database.CloseDB()

	log.Info().Msg("server exited gracefully")
}
