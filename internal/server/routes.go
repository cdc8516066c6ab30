package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"triviaroom/internal/config"
	"triviaroom/internal/db"
	"triviaroom/internal/gateway"
	"triviaroom/internal/metrics"
	"triviaroom/internal/questions"
	"triviaroom/internal/rooms"
	"triviaroom/internal/wshub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	sweepInterval   = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
	archiveBuffer   = 100
)

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	appCfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(appCfg)

	bank, err := questions.Load(appCfg.QuestionsPath, appCfg.DefaultTimeLimit)
	if err != nil {
		return err
	}
	log.Info().Str("path", appCfg.QuestionsPath).Int("questions", bank.Len()).Msg("question bank loaded")

	prom := metrics.NewPrometheus()
	srv := &Server{Metrics: prom}

	var archive chan rooms.Result
	if appCfg.DatabaseURL != "" {
		database, err := db.Connect(appCfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, running without archive")
		} else {
			defer database.Close()
			if err := database.Migrate(); err != nil {
				log.Error().Err(err).Msg("migration failed")
			}
			srv.Archive = database
			archive = make(chan rooms.Result, archiveBuffer)
		}
	} else {
		log.Info().Msg("DATABASE_URL not set, running without archive")
	}

	roomCfg := rooms.Config{
		SettleOffset:         appCfg.SettleOffset,
		GracePeriod:          appCfg.GracePeriod,
		HostPolicy:           rooms.HostPolicy(appCfg.HostPolicy),
		ReleaseBuzzerOnLeave: appCfg.ReleaseBuzzerOnLeave,
	}
	opts := rooms.Options{Metrics: prom, CodeLength: appCfg.RoomCodeLength}
	if archive != nil {
		opts.OnFinish = enqueueResult(archive)
	}
	srv.Rooms = rooms.NewStore(bank, roomCfg, opts)
	srv.Hub = wshub.NewHub(gateway.New(srv.Rooms), wshub.Options{
		OriginPatterns: appCfg.AllowedOrigins,
		ReadLimit:      appCfg.MaxMessageBytes,
		SendBuffer:     appCfg.SendBuffer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archiveDone := make(chan struct{})
	if archive != nil {
		go func() {
			defer close(archiveDone)
			archiveWriter(srv.Archive, archive)
		}()
	} else {
		close(archiveDone)
	}
	go sweepFinished(ctx, srv.Rooms, appCfg.RoomTTL)

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + appCfg.Port,
		Handler:           srv.Routes(appCfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	srv.Hub.CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()
	srv.Rooms.Shutdown()

	if archive != nil {
		close(archive)
	}
	select {
	case <-archiveDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("archive writer did not drain before shutdown deadline")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

// Routes builds the HTTP surface.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.Hub.ServeHTTP)
	r.Get("/healthz", s.handleHealth)
	r.Get("/rooms/{code}", s.handleRoom)
	r.Get("/games", s.handleGames)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func setupLogging(cfg config.Config) {
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(cfg.Level())
}

// sweepFinished drops finished rooms that outlived ttl.
func sweepFinished(ctx context.Context, store *rooms.Store, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(ttl); n > 0 {
				log.Info().Int("rooms", n).Msg("swept finished rooms")
			}
		}
	}
}
