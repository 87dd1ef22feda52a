package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyrag/internal/providers"
	"studyrag/internal/util"
	"studyrag/internal/vector"
)

// Embedder maps one text to a flat vector. Failures wrap util.ErrEmbeddingUnavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator returns raw model text. Failures wrap util.ErrGenerationUnavailable.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Describer is implemented by capabilities that can name their provider and model.
type Describer interface {
	Describe() (provider, model string)
}

// CapabilityError tags a provider failure with the capability sentinel it
// maps to. errors.Is matches both Kind and Cause.
type CapabilityError struct {
	Kind  error
	Cause error
}

func (e *CapabilityError) Error() string {
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *CapabilityError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// providerCause returns the provider error inside a CapabilityError.
func providerCause(err error) error {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Cause
	}
	return err
}

type ProviderEmbedder struct {
	p       providers.EmbeddingProvider
	ref     providers.ProviderRef
	dim     int
	timeout time.Duration
}

func NewProviderEmbedder(p providers.EmbeddingProvider, ref providers.ProviderRef, dim int, timeout time.Duration) *ProviderEmbedder {
	return &ProviderEmbedder{p: p, ref: ref, dim: dim, timeout: timeout}
}

func (e *ProviderEmbedder) Describe() (string, string) {
	return e.ref.Name, e.ref.Raw
}

func (e *ProviderEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	rows, _, err := e.p.Embed(ctx, providers.EmbedRequest{
		Operation: "embed",
		Inputs:    []string{text},
		Dimension: e.dim,
	})
	if err != nil {
		return nil, &CapabilityError{Kind: util.ErrEmbeddingUnavailable, Cause: err}
	}
	vec := vector.Flatten(rows)
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider %s returned no vector", util.ErrEmbeddingUnavailable, e.ref.Raw)
	}
	return vec, nil
}

type operationKey struct{}

// withOperation labels the generation calls made with ctx. Unlabelled calls
// are question generation.
func withOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

func operationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return providers.OpQuestionGeneration
}

type ProviderGenerator struct {
	p       providers.LLMProvider
	ref     providers.ProviderRef
	timeout time.Duration
}

func NewProviderGenerator(p providers.LLMProvider, ref providers.ProviderRef, timeout time.Duration) *ProviderGenerator {
	return &ProviderGenerator{p: p, ref: ref, timeout: timeout}
}

func (g *ProviderGenerator) Describe() (string, string) {
	return g.ref.Name, g.ref.Raw
}

func (g *ProviderGenerator) GenerateText(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, _, err := g.p.Generate(ctx, providers.GenerateRequest{
		Operation:   operationFrom(ctx),
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", &CapabilityError{Kind: util.ErrGenerationUnavailable, Cause: err}
	}
	return resp.Text, nil
}
