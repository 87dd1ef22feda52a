package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"studyrag/internal/api"
	"studyrag/internal/app"
	"studyrag/internal/config"
	"studyrag/internal/logger"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("init app", "error", err)
	}
	defer a.Close()

	var orch api.Orchestrator = api.NewInProcessOrchestrator(a.Activities)
	if cfg.TemporalEnabled() {
		tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			lg.Fatal("dial temporal", "address", cfg.TemporalAddress, "error", err)
		}
		defer tc.Close()
		orch = api.NewTemporalOrchestrator(tc, cfg.TemporalTaskQueue)
	}

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           api.NewServer(cfg, a.Store, a.Services, orch, lg).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lg.Info("studyrag api listening", "addr", cfg.APIAddr, "temporal", cfg.TemporalEnabled(), "llm_providers", cfg.LLMProviders, "embed_providers", cfg.EmbedProviders)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("http server", "error", err)
	}
}
