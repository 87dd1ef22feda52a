package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// HuggingFaceProvider calls the hosted inference API: feature-extraction for
// embeddings and text-generation for chat.
type HuggingFaceProvider struct {
	keyName    string
	apiKey     string
	baseURL    string
	embedModel string
	genModel   string
	client     *http.Client
}

func NewHuggingFaceProvider(keyName string) *HuggingFaceProvider {
	baseURL := strings.TrimSpace(os.Getenv("STUDYRAG_HF_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	embedModel := strings.TrimSpace(os.Getenv("STUDYRAG_HF_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = "sentence-transformers/all-MiniLM-L6-v2"
	}
	genModel := strings.TrimSpace(os.Getenv("STUDYRAG_HF_GEN_MODEL"))
	if genModel == "" {
		genModel = "mistralai/Mistral-7B-Instruct-v0.2"
	}
	return &HuggingFaceProvider{
		keyName:    keyName,
		apiKey:     resolveKey("HUGGINGFACE", keyName),
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		genModel:   genModel,
		client:     &http.Client{Timeout: 90 * time.Second},
	}
}

func (h *HuggingFaceProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "huggingface", Model: h.embedModel, Key: h.keyName}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	out := make([][]float32, 0, len(req.Inputs))
	for _, text := range req.Inputs {
		body, err := h.post(ctx, "/pipeline/feature-extraction/"+h.embedModel, map[string]any{"inputs": text})
		if err != nil {
			return nil, info, fmt.Errorf("huggingface embedding: %w", err)
		}
		vec, err := flattenNumbers(body)
		if err != nil {
			return nil, info, fmt.Errorf("decode huggingface embedding: %w", err)
		}
		if len(vec) == 0 {
			return nil, info, fmt.Errorf("huggingface returned empty embedding")
		}
		out = append(out, matchDimension(vec, req.Dimension))
	}
	return out, info, nil
}

func (h *HuggingFaceProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "huggingface", Model: h.genModel, Key: h.keyName}
	params := map[string]any{
		"temperature":      req.Temperature,
		"top_p":            0.9,
		"return_full_text": false,
	}
	if req.MaxTokens > 0 {
		params["max_new_tokens"] = req.MaxTokens
	}
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt += "\n\nContext:\n" + strings.Join(req.Context, "\n\n")
	}
	body, err := h.post(ctx, "/models/"+h.genModel, map[string]any{"inputs": prompt, "parameters": params})
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("huggingface generate: %w", err)
	}
	var parsed []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode huggingface generate response: %w", err)
	}
	if len(parsed) == 0 {
		return GenerateResponse{}, info, fmt.Errorf("huggingface returned no generations")
	}
	return GenerateResponse{Text: parsed[0].GeneratedText}, info, nil
}

func (h *HuggingFaceProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if h.apiKey == "" {
		return nil, fmt.Errorf("huggingface key missing for alias %q", h.keyName)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// flattenNumbers accepts a number array nested to any depth and returns its
// leaves in order. Feature extraction returns [dim] or [[dim]] by model.
func flattenNumbers(raw []byte) ([]float32, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	var out []float32
	var walk func(x any) error
	walk = func(x any) error {
		switch t := x.(type) {
		case float64:
			out = append(out, float32(t))
		case []any:
			for _, e := range t {
				if err := walk(e); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unexpected embedding element %T", x)
		}
		return nil
	}
	if err := walk(v); err != nil {
		return nil, err
	}
	return out, nil
}
