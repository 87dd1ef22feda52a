package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"studyrag/internal/util"
)

// TemporalDisabled as STUDYRAG_TEMPORAL_ADDRESS runs ingestion inside the API process.
const TemporalDisabled = "none"

type Config struct {
	APIAddr           string
	DBDriver          string
	DBDSN             string
	TemporalAddress   string
	TemporalTaskQueue string
	UploadDir         string
	ChunkSize         int
	ChunkOverlap      int
	EmbedDim          int
	EmbedProviders    string
	LLMProviders      string
	GenMaxTokens      int
	GenTemperature    float64
	CapabilityTimeout time.Duration
	GenConcurrency    int
	MaxQuestions      int
	RedisAddr         string
	RedisTTL          time.Duration
	LogMode           string
}

func Load() Config {
	return Config{
		APIAddr:           getenv("STUDYRAG_API_ADDR", ":8080"),
		DBDriver:          strings.ToLower(getenv("STUDYRAG_DB_DRIVER", "sqlite")),
		DBDSN:             getenv("STUDYRAG_DB_DSN", "file:./data/studyrag.db?_pragma=foreign_keys(1)"),
		TemporalAddress:   getenv("STUDYRAG_TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue: getenv("STUDYRAG_TEMPORAL_TASK_QUEUE", "studyrag"),
		UploadDir:         getenv("STUDYRAG_UPLOAD_DIR", "./data/uploads"),
		ChunkSize:         getenvInt("STUDYRAG_CHUNK_SIZE", util.DefaultChunkSize),
		ChunkOverlap:      getenvInt("STUDYRAG_CHUNK_OVERLAP", util.DefaultChunkOverlap),
		EmbedDim:          getenvInt("STUDYRAG_EMBED_DIM", 384),
		EmbedProviders:    getenv("STUDYRAG_EMBED_PROVIDERS", "mock"),
		LLMProviders:      getenv("STUDYRAG_LLM_PROVIDERS", "mock"),
		GenMaxTokens:      getenvInt("STUDYRAG_GEN_MAX_TOKENS", 500),
		GenTemperature:    getenvFloat("STUDYRAG_GEN_TEMPERATURE", 0.3),
		CapabilityTimeout: time.Duration(getenvInt("STUDYRAG_CAPABILITY_TIMEOUT_SECONDS", 60)) * time.Second,
		GenConcurrency:    getenvInt("STUDYRAG_GEN_CONCURRENCY", 1),
		MaxQuestions:      getenvInt("STUDYRAG_MAX_QUESTIONS", 10),
		RedisAddr:         getenv("STUDYRAG_REDIS_ADDR", ""),
		RedisTTL:          time.Duration(getenvInt("STUDYRAG_REDIS_TTL_SECONDS", 86400)) * time.Second,
		LogMode:           getenv("STUDYRAG_LOG_MODE", "dev"),
	}
}

func (c Config) TemporalEnabled() bool {
	return c.TemporalAddress != "" && c.TemporalAddress != TemporalDisabled
}

// Validate rejects settings the pipeline cannot run with. Nothing is clamped.
func (c Config) Validate() error {
	if err := util.ValidateChunkConfig(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown db driver %q", util.ErrInvalidConfiguration, c.DBDriver)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: embed dim must be positive", util.ErrInvalidConfiguration)
	}
	if c.GenMaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", util.ErrInvalidConfiguration)
	}
	if c.GenTemperature < 0 || c.GenTemperature > 2 {
		return fmt.Errorf("%w: temperature %.2f out of range", util.ErrInvalidConfiguration, c.GenTemperature)
	}
	if c.CapabilityTimeout <= 0 {
		return fmt.Errorf("%w: capability timeout must be positive", util.ErrInvalidConfiguration)
	}
	if c.GenConcurrency < 1 {
		return fmt.Errorf("%w: generation concurrency must be >= 1", util.ErrInvalidConfiguration)
	}
	if c.MaxQuestions < 1 {
		return fmt.Errorf("%w: max questions must be >= 1", util.ErrInvalidConfiguration)
	}
	return nil
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
