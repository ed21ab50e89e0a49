package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"chat-widget-relay/internal/archive"
	"chat-widget-relay/internal/config"
	"chat-widget-relay/internal/engine"
	"chat-widget-relay/internal/relay"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// --- Upstream engine ---
	var eng relay.Engine
	if cfg.WebhookURL != "" {
		eng, err = engine.NewWebhook(cfg.WebhookURL)
	} else {
		eng, err = engine.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
	}
	if err != nil {
		log.Error("engine setup failed", "error", err)
		os.Exit(1)
	}

	// --- Transcript archive (optional) ---
	var arc relay.Archive
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("db open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			cancel()
			log.Error("db ping failed", "error", err)
			os.Exit(1)
		}
		cancel()

		arc, err = archive.NewPostgres(db)
		if err != nil {
			log.Error("postgres archive setup failed", "error", err)
			os.Exit(1)
		}
		log.Info("archiving transcripts to postgres")
	case cfg.RedisURL != "":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			log.Error("redis ping failed", "error", err)
			os.Exit(1)
		}
		cancel()

		arc, err = archive.NewRedis(rdb)
		if err != nil {
			log.Error("redis archive setup failed", "error", err)
			os.Exit(1)
		}
		log.Info("archiving transcripts to redis")
	}

	// --- Relay wiring ---
	normalizer, err := relay.NewNormalizer(eng, arc, cfg.FallbackMessage, log)
	if err != nil {
		log.Error("normalizer setup failed", "error", err)
		os.Exit(1)
	}
	handler := relay.NewHandler(normalizer, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	relay.RegisterRoutes(r, handler, arc)

	log.Info("listening", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
