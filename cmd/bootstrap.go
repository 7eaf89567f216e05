package main

import (
	"context"
	"fmt"

	"github.com/bilgisen/newstrust/internal/cache"
	"github.com/bilgisen/newstrust/internal/config"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/bilgisen/newstrust/internal/storage"
)

// app holds the long-lived collaborators shared by the commands.
type app struct {
	cfg   *config.Config
	store storage.Store
	cache cache.RedisInterface
	svc   *moderation.Service
}

func initLogger(cfg *config.Config) {
	output := cfg.LogFile
	if output == "" {
		output = "stdout"
	}
	logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.IsDevelopment() && cfg.LogFile == "",
	})
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Get().Warn().Msg("Using the in-memory store; data is lost on exit")
		return storage.NewMemory(), nil
	}
	return storage.NewMongo(ctx, storage.MongoConfig{
		URI:          cfg.MongoURI,
		Database:     cfg.MongoDB,
		Transactions: cfg.MongoTransactions,
		Timeout:      cfg.StoreTimeout,
	})
}

func openCache(cfg *config.Config) (cache.RedisInterface, error) {
	if cfg.RedisURL == "" {
		logger.Get().Warn().Msg("REDIS_URL not set, using the in-process cache")
		return cache.NewMockRedisClient(cfg.RedisPrefix), nil
	}
	return cache.NewRedisClient(cfg)
}

// bootstrap loads the configuration and opens the store and cache.
func bootstrap(ctx context.Context) (*app, error) {
	cfg := config.Load()
	initLogger(cfg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	c, err := openCache(cfg)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	svc := moderation.NewService(store, c, moderation.Options{
		Timeout:       cfg.StoreTimeout,
		TopSourcesTTL: cfg.TopSourcesTTL,
	})
	return &app{cfg: cfg, store: store, cache: c, svc: svc}, nil
}

func (a *app) close(ctx context.Context) {
	log := logger.Get()
	log.Info().Msg("Closing cache client...")
	if err := a.cache.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing cache client")
	}
	log.Info().Msg("Closing store...")
	if err := a.store.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Error closing store")
	}
}
