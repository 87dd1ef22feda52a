package providers

import (
	"fmt"
	"strings"
	"time"

	"studyrag/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
	embedDim       int
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{embedDim: cfg.EmbedDim}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	return m, nil
}

// WithEmbedCache wraps every embedding provider in a Redis cache.
func (m *Manager) WithEmbedCache(rdb cacheClient, ttl time.Duration) {
	for i := range m.embedProviders {
		np := &m.embedProviders[i]
		np.Provider = NewCachingEmbedder(np.Provider, rdb, ttl, np.Ref.Raw)
	}
}

func (m *Manager) EmbedDim() int {
	return m.embedDim
}

// Embedder returns the preferred embedding provider; real providers win over mock.
func (m *Manager) Embedder() (EmbeddingProvider, ProviderRef) {
	order := preferredOrder(len(m.embedProviders), func(i int) string { return strings.ToLower(m.embedProviders[i].Ref.Name) })
	if len(order) == 0 {
		return NewMockProvider(m.embedDim), ProviderRef{Raw: "mock", Name: "mock"}
	}
	np := m.embedProviders[order[0]]
	return np.Provider, np.Ref
}

func (m *Manager) Generator() (LLMProvider, ProviderRef) {
	order := preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
	if len(order) == 0 {
		return NewMockProvider(m.embedDim), ProviderRef{Raw: "mock", Name: "mock"}
	}
	np := m.llmProviders[order[0]]
	return np.Provider, np.Ref
}

func (m *Manager) FindLLMProviderByName(name string) (LLMProvider, ProviderRef, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return nil, ProviderRef{}, false
	}
	for i := range m.llmProviders {
		ref := m.llmProviders[i].Ref
		if strings.ToLower(ref.Name) == target || strings.ToLower(ref.Raw) == target {
			return m.llmProviders[i].Provider, ref, true
		}
	}
	return nil, ProviderRef{}, false
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	case "huggingface", "hf":
		return NewHuggingFaceProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
