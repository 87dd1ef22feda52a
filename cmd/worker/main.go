package main

import (
	"context"
	"log"

	"studyrag/internal/activities"
	"studyrag/internal/app"
	"studyrag/internal/config"
	"studyrag/internal/logger"
	"studyrag/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	if !cfg.TemporalEnabled() {
		lg.Fatal("worker needs STUDYRAG_TEMPORAL_ADDRESS", "temporal_address", cfg.TemporalAddress)
	}

	a, err := app.New(context.Background(), cfg, lg)
	if err != nil {
		lg.Fatal("init app", "error", err)
	}
	defer a.Close()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		lg.Fatal("dial temporal", "address", cfg.TemporalAddress, "error", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 4,
	})
	workflows.Register(w)
	activities.Register(w, a.Activities)

	lg.Info("studyrag worker listening", "address", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue, "llm_providers", cfg.LLMProviders, "embed_providers", cfg.EmbedProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		lg.Fatal("worker stopped", "error", err)
	}
}
