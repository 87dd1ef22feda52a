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
	"studyrag/internal/vector"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Repository is the read side of storage the pipeline needs. GetMaterial
// returns an error wrapping util.ErrMaterialNotFound for unknown ids.
type Repository interface {
	GetMaterial(ctx context.Context, materialID string) (models.Material, error)
	ListChunks(ctx context.Context, materialID string) ([]models.Chunk, error)
}

// VectorSearcher is implemented by repositories that can rank chunks
// server-side. Others are ranked in memory.
type VectorSearcher interface {
	SearchChunks(ctx context.Context, materialID string, queryVec []float32, topK int) ([]models.ChunkResult, error)
}

type PipelineOptions struct {
	// Concurrency bounds parallel generation calls in a batch. Values below 1 mean 1.
	Concurrency int
}

type Pipeline struct {
	repo     Repository
	gen      *Generator
	val      *Validator
	embedder Embedder
	opts     PipelineOptions
	log      *logger.Logger
}

func NewPipeline(repo Repository, gen *Generator, val *Validator, embedder Embedder, opts PipelineOptions, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{repo: repo, gen: gen, val: val, embedder: embedder, opts: opts, log: log}
}

// loadReady returns a ready material with at least one chunk.
func (p *Pipeline) loadReady(ctx context.Context, materialID string) (models.Material, []models.Chunk, error) {
	m, err := p.repo.GetMaterial(ctx, materialID)
	if err != nil {
		return models.Material{}, nil, err
	}
	if !m.Ready() {
		return models.Material{}, nil, fmt.Errorf("%w: material %s is %s", util.ErrMaterialNotReady, materialID, m.Status)
	}
	chunks, err := p.repo.ListChunks(ctx, materialID)
	if err != nil {
		return models.Material{}, nil, fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return models.Material{}, nil, fmt.Errorf("%w: material %s has no chunks", util.ErrMaterialNotReady, materialID)
	}
	return m, chunks, nil
}

// GenerateForMaterial returns up to count questions in chunk order. Chunks
// whose generation call fails are skipped, so fewer than count is a normal
// result.
func (p *Pipeline) GenerateForMaterial(ctx context.Context, materialID string, count int) ([]models.GeneratedQuestion, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", util.ErrInvalidArgument, count)
	}
	_, chunks, err := p.loadReady(ctx, materialID)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.HasEmbedding() {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		p.log.Info("no embedded chunks, using basic questions", "material_id", materialID)
		return basicQuestions(materialID, chunks[:min(count, len(chunks))]), nil
	}

	selected, err := SelectDiverse(eligible, min(count, len(eligible)))
	if err != nil {
		return nil, err
	}

	slots := make([]*models.GeneratedQuestion, len(selected))
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, c := range selected {
		g.Go(func() error {
			q, res := p.gen.generateForBatch(ctx, c)
			if res.Outcome == OutcomeCapabilityError {
				p.log.Warn("chunk generation failed, skipping",
					"material_id", materialID,
					"chunk_id", c.ChunkID,
					"error_class", string(providers.ClassifyError(providerCause(res.Err))),
					"error", res.Err,
				)
				return nil
			}
			slots[i] = &q
			return nil
		})
	}
	// Workers never return an error; failed chunks leave their slot nil.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.GeneratedQuestion, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			out = append(out, *q)
		}
	}
	p.log.Info("questions generated", "material_id", materialID, "requested", count, "selected", len(selected), "generated", len(out))
	return out, nil
}

func basicQuestions(materialID string, chunks []models.Chunk) []models.GeneratedQuestion {
	now := time.Now().UTC()
	out := make([]models.GeneratedQuestion, 0, len(chunks))
	for _, c := range chunks {
		q := BasicQuestion(c.Text)
		q.QuestionID = uuid.NewString()
		q.MaterialID = materialID
		q.SourceChunkID = c.ChunkID
		q.CreatedAt = now
		out = append(out, q)
	}
	return out
}

// ValidateAnswer grounds answer against the material's chunks. Only storage
// errors and a missing material are returned.
func (p *Pipeline) ValidateAnswer(ctx context.Context, materialID, question, answer string) (models.ValidationResult, error) {
	if _, err := p.repo.GetMaterial(ctx, materialID); err != nil {
		return models.ValidationResult{}, err
	}
	chunks, err := p.repo.ListChunks(ctx, materialID)
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("list chunks: %w", err)
	}
	return p.val.Validate(ctx, chunks, question, answer), nil
}

// Search ranks a material's embedded chunks against query.
func (p *Pipeline) Search(ctx context.Context, materialID, query string, topK int) ([]models.ChunkResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", util.ErrInvalidArgument)
	}
	if topK <= 0 {
		topK = 5
	}
	m, err := p.repo.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if p.embedder == nil {
		return nil, util.ErrEmbeddingUnavailable
	}
	qv, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return p.rank(ctx, m, qv, query, topK)
}

func (p *Pipeline) rank(ctx context.Context, m models.Material, qv []float32, query string, topK int) ([]models.ChunkResult, error) {
	var results []models.ChunkResult
	if vs, ok := p.repo.(VectorSearcher); ok {
		var err error
		results, err = vs.SearchChunks(ctx, m.MaterialID, qv, topK)
		if err != nil {
			return nil, err
		}
	} else {
		chunks, err := p.repo.ListChunks(ctx, m.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("list chunks: %w", err)
		}
		cands := make([]vector.Candidate[models.Chunk], 0, len(chunks))
		for _, c := range chunks {
			if c.HasEmbedding() {
				cands = append(cands, vector.Candidate[models.Chunk]{ID: c.ChunkID, Vector: c.Embedding, Payload: c})
			}
		}
		for _, s := range vector.TopK(qv, cands, topK) {
			results = append(results, models.ChunkResult{
				MaterialID: m.MaterialID,
				Title:      m.Title,
				ChunkID:    s.ID,
				ChunkIndex: s.Payload.ChunkIndex,
				Score:      s.Similarity,
				ChunkText:  s.Payload.Text,
			})
		}
	}
	for i := range results {
		results[i].Snippet = util.EvidenceSnippet(results[i].ChunkText, query, 300)
	}
	return results, nil
}
