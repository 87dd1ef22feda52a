package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are an expert educator writing study questions. Answer only from the provided material and return strictly the JSON requested."

// chatClient talks to any OpenAI-compatible chat endpoint.
type chatClient struct {
	name    string
	keyName string
	apiKey  string
	model   string
	client  *openai.Client
}

func newChatClient(name, keyName, apiKey, baseURL, model string) chatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return chatClient{
		name:    name,
		keyName: keyName,
		apiKey:  apiKey,
		model:   model,
		client:  openai.NewClientWithConfig(cfg),
	}
}

func (c chatClient) info() ProviderInfo {
	return ProviderInfo{Name: c.name, Model: c.model, Key: c.keyName}
}

func (c chatClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if c.apiKey == "" {
		return GenerateResponse{}, c.info(), fmt.Errorf("%s key missing for alias %q", c.name, c.keyName)
	}
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt += "\n\nContext:\n" + strings.Join(req.Context, "\n\n")
	}
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(req.Temperature),
		TopP:        0.9,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return GenerateResponse{}, c.info(), fmt.Errorf("%s generate request failed: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResponse{}, c.info(), fmt.Errorf("%s returned empty choices", c.name)
	}
	return GenerateResponse{Text: resp.Choices[0].Message.Content}, c.info(), nil
}

// OpenAIProvider serves both chat generation and embeddings.
type OpenAIProvider struct {
	chatClient
	embedModel openai.EmbeddingModel
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	model := strings.TrimSpace(os.Getenv("STUDYRAG_OPENAI_MODEL"))
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		chatClient: newChatClient("openai", keyName, resolveKey("OPENAI", keyName), os.Getenv("STUDYRAG_OPENAI_BASE_URL"), model),
		embedModel: openai.SmallEmbedding3,
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: string(o.embedModel), Key: o.keyName}
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	embReq := openai.EmbeddingRequest{Input: req.Inputs, Model: o.embedModel}
	if req.Dimension > 0 {
		embReq.Dimensions = req.Dimension
	}
	resp, err := o.client.CreateEmbeddings(ctx, embReq)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding request failed: %w", err)
	}
	out := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

// GroqProvider generates through Groq's OpenAI-compatible API. Groq has no
// embedding endpoint.
type GroqProvider struct {
	chatClient
}

func NewGroqProvider(keyName string) *GroqProvider {
	model := strings.TrimSpace(os.Getenv("STUDYRAG_GROQ_MODEL"))
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	baseURL := strings.TrimSpace(os.Getenv("STUDYRAG_GROQ_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &GroqProvider{chatClient: newChatClient("groq", keyName, resolveKey("GROQ", keyName), baseURL, model)}
}

// resolveKey prefers STUDYRAG_<VENDOR>_KEY_<ALIAS>, then <VENDOR>_API_KEY.
func resolveKey(vendor, alias string) string {
	if alias != "" {
		if v := os.Getenv("STUDYRAG_" + vendor + "_KEY_" + sanitizeEnvToken(alias)); v != "" {
			return v
		}
	}
	return os.Getenv(vendor + "_API_KEY")
}
