package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/lberthe/scribe/internal/adapters/http"
	"github.com/lberthe/scribe/internal/adapters/store"
	"github.com/lberthe/scribe/internal/adapters/ws"
	"github.com/lberthe/scribe/internal/app"
	"github.com/lberthe/scribe/internal/config"
	"github.com/lberthe/scribe/internal/core"
	"github.com/lberthe/scribe/internal/recognizer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	// The model loads once here; a failure is reported per session,
	// never by crashing the process.
	engineImpl, err := recognizer.NewEngine(cfg.ModelPath)
	if err != nil {
		log.Error().Err(err).Msg("recognizer init")
	}

	engine := &app.Engine{
		Registry:   core.NewMeetingRegistry(),
		Sessions:   core.NewSessionTable(),
		Recognizer: engineImpl,
		Meetings:   store.NewCatalog(cfg.Meetings),
		Sink:       store.LogSink{},
		Policy:     app.DropPolicy{},
	}

	limiter := ws.NewFrameLimiter(cfg.FrameLimit, cfg.FrameInterval)
	ctl := ws.NewController(engine, limiter, cfg.ReadLimit, cfg.SendBuffer, cfg.SampleRate)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Scribe server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
