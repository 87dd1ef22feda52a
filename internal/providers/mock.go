package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// MaterialMarker precedes the material text in generation prompts. The mock
// reads only what follows it.
const MaterialMarker = "MATERIAL:"

type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 384
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, bagOfWordsVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

// Generate answers question, flashcard and material-answer prompts from the
// substantial sentences of the material. Other operations get a fixed reply.
func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	statements := mockStatements(req.Prompt)
	switch op := strings.ToLower(req.Operation); {
	case op == OpFlashcardGeneration:
		return GenerateResponse{Text: mockFlashcards(statements)}, info, nil
	case op == OpMaterialAnswer:
		if len(statements) == 0 {
			return GenerateResponse{Text: "I cannot find the answer to this question in the provided material."}, info, nil
		}
		return GenerateResponse{Text: "According to the material, " + statements[0] + "."}, info, nil
	case strings.Contains(op, "question"):
		return GenerateResponse{Text: mockQuestion(statements)}, info, nil
	default:
		return GenerateResponse{Text: "Mock response."}, info, nil
	}
}

// mockStatements returns the sentences after MaterialMarker longer than 20
// runes, whitespace collapsed and cut to 120 runes.
func mockStatements(prompt string) []string {
	material := prompt
	if i := strings.LastIndex(material, MaterialMarker); i >= 0 {
		material = material[i+len(MaterialMarker):]
	}
	var out []string
	for _, s := range strings.FieldsFunc(material, func(r rune) bool { return r == '.' || r == '!' || r == '?' }) {
		s = strings.Join(strings.Fields(s), " ")
		if r := []rune(s); len(r) > 120 {
			s = string(r[:120])
		}
		if len([]rune(s)) > 20 {
			out = append(out, s)
		}
	}
	return out
}

func mockQuestion(statements []string) string {
	statement := "the material's main idea"
	if len(statements) > 0 {
		statement = statements[0]
	}
	payload := map[string]any{
		"question": "Which statement is directly supported by the material?",
		"answers": []string{
			statement,
			"A claim the material does not make",
			"The opposite of what the material states",
			"An unrelated statement",
		},
		"correctAnswerIndex": 0,
		"explanation":        "The material states: " + statement,
		"topic":              "General",
	}
	raw, _ := json.Marshal(payload)
	return "Here is your question:\n" + string(raw)
}

func mockFlashcards(statements []string) string {
	type card struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	cards := make([]card, 0, min(len(statements), 20))
	for _, s := range statements {
		words := strings.Fields(s)
		cards = append(cards, card{
			Question: `What does the material say about "` + strings.Join(words[:min(len(words), 4)], " ") + `"?`,
			Answer:   s,
		})
		if len(cards) == 20 {
			break
		}
	}
	if len(cards) == 0 {
		cards = append(cards, card{Question: "What is the main idea of the material?", Answer: "The material's main idea."})
	}
	raw, _ := json.Marshal(cards)
	return "Here are your flashcards:\n" + string(raw)
}

// bagOfWordsVector hashes each lowercase word into one of dim buckets so
// texts that share words land near each other.
func bagOfWordsVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		words = []string{"empty"}
	}
	for _, w := range words {
		h := sha256.Sum256([]byte(w))
		u := binary.BigEndian.Uint32(h[:4])
		idx := int(u % uint32(dim))
		if h[4]&1 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
