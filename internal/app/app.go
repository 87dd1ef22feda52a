package app

import (
	"context"
	"fmt"
	"time"

	"studyrag/internal/activities"
	"studyrag/internal/config"
	"studyrag/internal/logger"
	"studyrag/internal/providers"
	"studyrag/internal/rag"
	"studyrag/internal/storage"

	goredis "github.com/redis/go-redis/v9"
)

// App holds the wired dependencies shared by the api, worker and cli binaries.
type App struct {
	Cfg        config.Config
	Log        *logger.Logger
	Store      storage.Store
	Providers  *providers.Manager
	Services   *rag.Services
	Activities *activities.Activities

	redis *goredis.Client
}

// New validates cfg, opens storage and builds the provider stack. A
// configured but unreachable Redis only disables the embedding cache.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := storage.Open(openCtx, cfg.DBDriver, cfg.DBDSN, cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pm, err := providers.NewManager(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init providers: %w", err)
	}

	a := &App{Cfg: cfg, Log: log, Store: store, Providers: pm}
	if cfg.RedisAddr != "" {
		rdb, err := providers.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("embedding cache disabled", "redis_addr", cfg.RedisAddr, "error", err)
		} else {
			pm.WithEmbedCache(rdb, cfg.RedisTTL)
			a.redis = rdb
		}
	}

	a.Services = rag.NewServices(cfg, pm, store, store, log)
	a.Activities = activities.New(cfg, store, a.Services, log)

	_, eref := pm.Embedder()
	_, gref := pm.Generator()
	log.Info("studyrag wired",
		"db_driver", cfg.DBDriver,
		"embed_provider", eref.Raw,
		"llm_provider", gref.Raw,
		"embed_cache", a.redis != nil,
	)
	return a, nil
}

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
	a.Log.Sync()
}
