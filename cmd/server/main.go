// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/tahcohcat/starpath-web/config"
	"github.com/tahcohcat/starpath-web/internal/achievements"
	"github.com/tahcohcat/starpath-web/internal/api"
	"github.com/tahcohcat/starpath-web/internal/audio"
	"github.com/tahcohcat/starpath-web/internal/auth"
	"github.com/tahcohcat/starpath-web/internal/content"
	"github.com/tahcohcat/starpath-web/internal/database"
	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/services"
	"github.com/tahcohcat/starpath-web/internal/storage"
	"github.com/tahcohcat/starpath-web/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Mode, logger.ParseLevel(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.New()

	if cfg.DefaultSecret() {
		log.Warn("auth.session_secret is the default value; set STARPATH_AUTH_SESSION_SECRET")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	backend, closeBackend, err := newBackend(cfg, db)
	if err != nil {
		return err
	}
	defer closeBackend()

	catalog, err := content.LoadDir(cfg.Content.Dir)
	if err != nil {
		return fmt.Errorf("failed to load lessons: %w", err)
	}

	narrator, closeNarrator := newAudio(cfg)
	defer closeNarrator()

	hub := websocket.NewHub()
	go hub.Run()

	handler := api.NewHandler(api.Deps{
		Auth:    auth.NewManager(cfg.Auth.SessionSecret, backend, cfg.Auth.SessionTTL, cfg.Auth.SecureCookies),
		Users:   services.NewUserService(db),
		Catalog: catalog,
		Audio:   narrator,
		Engine:  achievements.NewEngine(achievements.WithRetroactive(cfg.Achievements.Retroactive)),
		Hub:     hub,
	})

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	app := r.PathPrefix("/").Subrouter()
	api.RegisterRoutes(app, handler)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Cors.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.With("port", cfg.Server.Port, "storage", cfg.Storage.Backend, "lessons", catalog.Len()).Info("StarPath server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newBackend(cfg *config.Config, db *database.DB) (storage.Backend, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemory(), func() {}, nil
	case "redis":
		rdb, err := storage.NewRedis(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, cfg.Storage.RedisKeyPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return rdb, func() { rdb.Close() }, nil
	default:
		return storage.NewSQLite(db), func() {}, nil
	}
}

// newAudio falls back to the dummy synthesizer when Google TTS is off or
// cannot start, so the rest of the app still runs.
func newAudio(cfg *config.Config) (*audio.Service, func()) {
	if !cfg.Tts.Enabled || cfg.Tts.Type != "google" {
		return audio.NewService(audio.NewDummy(), cfg.Tts.Voice), func() {}
	}

	g, err := audio.NewGoogle(context.Background(), cfg.Tts.CredentialsFile)
	if err != nil {
		logger.New().WithError(err).Warn("google tts unavailable, narration disabled")
		return audio.NewService(audio.NewDummy(), cfg.Tts.Voice), func() {}
	}
	return audio.NewService(g, cfg.Tts.Voice), func() { g.Close() }
}
