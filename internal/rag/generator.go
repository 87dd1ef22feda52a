package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studyrag/internal/logger"
	"studyrag/internal/models"
	"studyrag/internal/providers"
	"studyrag/internal/util"

	"github.com/google/uuid"
)

type GeneratorOptions struct {
	MaxTokens   int
	Temperature float64
	// Recorder receives one record per capability call when set.
	Recorder CallRecorder
}

func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{MaxTokens: 500, Temperature: 0.3}
}

type Generator struct {
	llm  TextGenerator
	opts GeneratorOptions
	log  *logger.Logger
	now  func() time.Time
}

func NewGenerator(llm TextGenerator, opts GeneratorOptions, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultGeneratorOptions().MaxTokens
	}
	return &Generator{llm: llm, opts: opts, log: log, now: time.Now}
}

// GenerateQuestion always returns a well-formed question for non-empty text.
// Capability failures and unusable output both fall back to the template.
func (g *Generator) GenerateQuestion(ctx context.Context, chunkText, chunkID string) (models.GeneratedQuestion, error) {
	if strings.TrimSpace(chunkText) == "" {
		return models.GeneratedQuestion{}, fmt.Errorf("%w: empty chunk text", util.ErrInvalidArgument)
	}
	res := g.attempt(ctx, chunkText, chunkID, "")
	return g.finish(chunkText, chunkID, res), nil
}

// generateForBatch differs from GenerateQuestion only on capability failure:
// it reports the failure so the caller can skip the chunk.
func (g *Generator) generateForBatch(ctx context.Context, c models.Chunk) (models.GeneratedQuestion, ParseResult) {
	res := g.attempt(ctx, c.Text, c.ChunkID, c.MaterialID)
	if res.Outcome == OutcomeCapabilityError {
		return models.GeneratedQuestion{}, res
	}
	q := g.finish(c.Text, c.ChunkID, res)
	q.MaterialID = c.MaterialID
	return q, res
}

func (g *Generator) attempt(ctx context.Context, chunkText, chunkID, materialID string) ParseResult {
	if g.llm == nil {
		return ParseResult{Outcome: OutcomeCapabilityError, Err: util.ErrGenerationUnavailable}
	}
	started := g.now()
	raw, err := g.llm.GenerateText(ctx, BuildQuestionPrompt(chunkText), g.opts.MaxTokens, g.opts.Temperature)
	g.record(ctx, providers.OpQuestionGeneration, PromptHash(QuestionPromptVersion), materialID, chunkID, started, err)
	if err != nil {
		return ParseResult{Outcome: OutcomeCapabilityError, Err: err}
	}
	return ParseQuestion(raw)
}

func (g *Generator) finish(chunkText, chunkID string, res ParseResult) models.GeneratedQuestion {
	var q models.GeneratedQuestion
	if res.Outcome == OutcomeOK {
		p := res.Question
		q = models.GeneratedQuestion{
			Question:           p.Question,
			Answers:            p.Answers,
			CorrectAnswerIndex: p.CorrectAnswerIndex,
			CorrectAnswer:      p.Answers[p.CorrectAnswerIndex],
			Explanation:        p.Explanation,
			SourceTextExcerpt:  util.Prefix(chunkText, sourceExcerptRunes),
			Topic:              p.Topic,
			Difficulty:         models.DifficultyMedium,
		}
	} else {
		g.log.Debug("question fallback used", "chunk_id", chunkID, "outcome", res.Outcome.String(), "cause", errString(res.Err))
		q = FallbackQuestion(chunkText)
	}
	q.QuestionID = uuid.NewString()
	q.SourceChunkID = chunkID
	q.CreatedAt = g.now().UTC()
	return q
}

// record audits one capability call. callErr is the capability error only;
// unusable output from a successful call is not a failed call.
func (g *Generator) record(ctx context.Context, op, promptHash, materialID, chunkID string, started time.Time, callErr error) {
	if g.opts.Recorder == nil {
		return
	}
	rec := CallRecord{
		MaterialID: materialID,
		ChunkID:    chunkID,
		Operation:  op,
		PromptHash: promptHash,
		Status:     CallOK,
		LatencyMS:  g.now().Sub(started).Milliseconds(),
		CreatedAt:  started.UTC(),
	}
	if d, ok := g.llm.(Describer); ok {
		rec.Provider, rec.Model = d.Describe()
	}
	if callErr != nil {
		rec.Status = CallFailed
		rec.ErrorClass = string(providers.ClassifyError(providerCause(callErr)))
		rec.Error = callErr.Error()
	}
	if err := g.opts.Recorder.RecordCall(ctx, rec); err != nil {
		g.log.Warn("record llm call failed", "chunk_id", chunkID, "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// recordingGenerator audits every call it forwards to the generator's capability.
type recordingGenerator struct {
	g          *Generator
	op         string
	promptHash string
	materialID string
}

func (r recordingGenerator) GenerateText(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	started := r.g.now()
	raw, err := r.g.llm.GenerateText(ctx, prompt, maxTokens, temperature)
	r.g.record(ctx, r.op, r.promptHash, r.materialID, "", started, err)
	return raw, err
}

// recording returns the capability wrapped for auditing, or nil when no
// capability is configured.
func (g *Generator) recording(op, promptHash, materialID string) TextGenerator {
	if g == nil || g.llm == nil {
		return nil
	}
	return recordingGenerator{g: g, op: op, promptHash: promptHash, materialID: materialID}
}
