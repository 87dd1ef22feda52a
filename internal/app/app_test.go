package app

import (
	"context"
	"testing"
	"time"

	"studyrag/internal/config"
	"studyrag/internal/util"

	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		DBDriver:          "sqlite",
		DBDSN:             "file::memory:?_pragma=foreign_keys(1)",
		ChunkSize:         500,
		ChunkOverlap:      100,
		EmbedDim:          32,
		EmbedProviders:    "mock",
		LLMProviders:      "mock",
		GenMaxTokens:      500,
		GenTemperature:    0.3,
		CapabilityTimeout: time.Second,
		GenConcurrency:    1,
		MaxQuestions:      10,
	}
}

func TestNewWiresSQLiteAndMockProviders(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Services.Pipeline)
	require.NotNil(t, a.Activities)
	materials, err := a.Store.ListMaterials(context.Background())
	require.NoError(t, err)
	require.Empty(t, materials)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkOverlap = cfg.ChunkSize
	_, err := New(context.Background(), cfg, nil)
	require.ErrorIs(t, err, util.ErrInvalidConfiguration)
}
