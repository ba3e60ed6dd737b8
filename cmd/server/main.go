package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kanbanpizza/server/internal/config"
	"github.com/kanbanpizza/server/internal/engine"
	"github.com/kanbanpizza/server/internal/fanout"
	"github.com/kanbanpizza/server/internal/gateway"
	"github.com/kanbanpizza/server/internal/scores"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())

	registry := engine.NewRegistry(cfg.Rules, engine.DefaultLimits())
	opts := []engine.Option{}

	var scoreRepo *scores.Repository
	if cfg.Database.Host != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create database pool")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		scoreRepo = scores.NewRepository(pool)
		if err := scoreRepo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate score schema")
		}
		opts = append(opts, engine.WithScoreStore(scoreRepo))
		log.Info().Str("host", cfg.Database.Host).Msg("score persistence enabled")
	}

	if cfg.NATSURL != "" {
		fanCfg := fanout.DefaultConfig()
		fanCfg.URL = cfg.NATSURL
		fan, err := fanout.New(fanCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect fan-out")
		}
		defer fan.Close()
		if err := fan.Subscribe(cm); err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe fan-out")
		}
		opts = append(opts, engine.WithPublisher(fan))
		log.Info().Str("url", cfg.NATSURL).Msg("event fan-out enabled")
	}

	eng := engine.New(registry, cm, engine.DefaultLimits(), opts...)
	cm.SetHandler(eng)

	go cm.Start(ctx)
	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := cm.ServeWS(w, r); err != nil {
			http.Error(w, "upgrade failed", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"rooms":       registry.RoomCount(),
			"connections": cm.Stats(),
		})
	})
	mux.HandleFunc("/scores", func(w http.ResponseWriter, r *http.Request) {
		if scoreRepo == nil {
			http.Error(w, "score persistence disabled", http.StatusNotFound)
			return
		}
		round, err := strconv.Atoi(r.URL.Query().Get("round"))
		if err != nil || round < 1 {
			http.Error(w, "invalid round", http.StatusBadRequest)
			return
		}
		top, err := scoreRepo.TopScores(r.Context(), round, 3)
		if err != nil {
			log.Error().Err(err).Msg("failed to read top scores")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, top)
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: cors.AllowAll().Handler(mux),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
