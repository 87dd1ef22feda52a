package rag

import (
	"fmt"
	"strings"

	"studyrag/internal/config"
	"studyrag/internal/logger"
	"studyrag/internal/models"
	"studyrag/internal/providers"
	"studyrag/internal/util"
)

// Services wires the configured providers into a Pipeline. The API, the
// worker activities and the CLI all build their pipeline through it.
type Services struct {
	cfg      config.Config
	pm       *providers.Manager
	repo     Repository
	recorder CallRecorder
	log      *logger.Logger

	Embedder  *ProviderEmbedder
	Generator *ProviderGenerator
	Pipeline  *Pipeline
}

func NewServices(cfg config.Config, pm *providers.Manager, repo Repository, rec CallRecorder, log *logger.Logger) *Services {
	if log == nil {
		log = logger.Nop()
	}
	ep, eref := pm.Embedder()
	gp, gref := pm.Generator()
	s := &Services{
		cfg:       cfg,
		pm:        pm,
		repo:      repo,
		recorder:  rec,
		log:       log,
		Embedder:  NewProviderEmbedder(ep, eref, pm.EmbedDim(), cfg.CapabilityTimeout),
		Generator: NewProviderGenerator(gp, gref, cfg.CapabilityTimeout),
	}
	s.Pipeline = s.build(s.Generator)
	return s
}

func (s *Services) build(llm TextGenerator) *Pipeline {
	gen := NewGenerator(llm, GeneratorOptions{
		MaxTokens:   s.cfg.GenMaxTokens,
		Temperature: s.cfg.GenTemperature,
		Recorder:    s.recorder,
	}, s.log)
	val := NewValidator(s.Embedder, s.log)
	return NewPipeline(s.repo, gen, val, s.Embedder, PipelineOptions{Concurrency: s.cfg.GenConcurrency}, s.log)
}

// PipelineFor returns the default pipeline, or one bound to the named LLM
// provider when llmName is set.
func (s *Services) PipelineFor(llmName string) (*Pipeline, error) {
	if llmName == "" {
		return s.Pipeline, nil
	}
	p, ref, ok := s.pm.FindLLMProviderByName(llmName)
	if !ok {
		return nil, fmt.Errorf("%w: llm provider not configured: %s", util.ErrInvalidArgument, llmName)
	}
	return s.build(NewProviderGenerator(p, ref, s.cfg.CapabilityTimeout)), nil
}

func (s *Services) IngestOptions() IngestOptions {
	_, model := s.Embedder.Describe()
	return IngestOptions{
		ChunkSize:      s.cfg.ChunkSize,
		ChunkOverlap:   s.cfg.ChunkOverlap,
		EmbeddingModel: model,
	}
}

// DefaultTopic is stored on questions when neither the request nor the model names one.
const DefaultTopic = "General"

// TagTopic applies the requested topic to qs. Without one, a topic parsed
// from the model output is kept and DefaultTopic fills the rest.
func TagTopic(qs []models.GeneratedQuestion, topic string) {
	topic = strings.TrimSpace(topic)
	for i := range qs {
		switch {
		case topic != "":
			qs[i].Topic = topic
		case strings.TrimSpace(qs[i].Topic) == "":
			qs[i].Topic = DefaultTopic
		}
	}
}
