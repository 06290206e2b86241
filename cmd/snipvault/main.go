package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/snipvault/snipvault/adapters/events"
	"github.com/snipvault/snipvault/adapters/store"
	"github.com/snipvault/snipvault/adapters/store/sqlite"
	"github.com/snipvault/snipvault/adapters/tokenizer"
	"github.com/snipvault/snipvault/adapters/verifier"
	"github.com/snipvault/snipvault/config"
	"github.com/snipvault/snipvault/service"
	"github.com/snipvault/snipvault/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	// Generate a new ECDSA key pair (you would normally load this from
	// somewhere secure).
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Error("failed to generate signing key", "error", err)
		os.Exit(1)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create event publisher", "error", err)
		os.Exit(1)
	}

	snippetStore, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open snippet store", "error", err)
		os.Exit(1)
	}
	defer snippetStore.Close()

	webauthnVerifier, err := verifier.NewWebAuthn(verifier.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		logger.Error("failed to configure verifier", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(
		store.NewRedisChallengeStore(redisClient, cfg.ChallengeTTL),
		store.NewRedisSessionStore(redisClient, cfg.SessionTTL),
		store.NewRedisCredentialStore(redisClient),
		webauthnVerifier,
		tokenizer.NewJWTTokenizer(signKey),
		events.NewWatermillPublisher(publisher),
		logger,
		service.WithSessionTTL(cfg.SessionTTL),
	)
	snippetService := service.NewSnippetService(snippetStore, logger)

	router := http.SetupRouter(authService, snippetService)

	logger.Info("starting server", "addr", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch level {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "warn":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With(slog.String("service", "snipvault"))
}
