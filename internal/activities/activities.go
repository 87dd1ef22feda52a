package activities

import (
	"context"
	"errors"
	"fmt"

	"studyrag/internal/config"
	"studyrag/internal/logger"
	"studyrag/internal/models"
	"studyrag/internal/rag"
	"studyrag/internal/storage"
	"studyrag/internal/util"

	"go.temporal.io/sdk/temporal"
)

// ErrTypeNoText marks a material whose file has no extractable text.
const ErrTypeNoText = "NoExtractableText"

type Activities struct {
	cfg      config.Config
	store    storage.Store
	services *rag.Services
	log      *logger.Logger
}

func New(cfg config.Config, store storage.Store, services *rag.Services, log *logger.Logger) *Activities {
	if log == nil {
		log = logger.Nop()
	}
	return &Activities{cfg: cfg, store: store, services: services, log: log}
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	text, err := rag.ExtractText(in.FilePath, in.FileType)
	if errors.Is(err, util.ErrNoExtractableText) {
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoText, err)
	}
	if err != nil {
		return ExtractTextOutput{}, err
	}
	return ExtractTextOutput{Text: text}, nil
}

// BuildChunksActivity chunks and embeds the text and replaces the material's
// stored chunks. Vectors stay out of workflow history.
func (a *Activities) BuildChunksActivity(ctx context.Context, in BuildChunksInput) (BuildChunksOutput, error) {
	opts := a.services.IngestOptions()
	if in.ChunkSize > 0 {
		opts.ChunkSize = in.ChunkSize
		opts.ChunkOverlap = in.ChunkOverlap
	}
	chunks, err := rag.BuildChunks(ctx, a.services.Embedder, in.MaterialID, in.Text, opts, a.log)
	if errors.Is(err, util.ErrNoExtractableText) {
		return BuildChunksOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoText, err)
	}
	if err != nil {
		return BuildChunksOutput{}, err
	}
	if err := a.store.ReplaceChunks(ctx, in.MaterialID, chunks); err != nil {
		return BuildChunksOutput{}, err
	}
	out := BuildChunksOutput{Chunks: len(chunks), EmbeddingModel: opts.EmbeddingModel}
	for _, c := range chunks {
		if c.HasEmbedding() {
			out.Embedded++
		}
	}
	return out, nil
}

func (a *Activities) UpdateMaterialStatusActivity(ctx context.Context, in UpdateMaterialStatusInput) error {
	return a.store.UpdateMaterialStatus(ctx, in.MaterialID, in.Status, in.FailReason)
}

func (a *Activities) GenerateQuestionsActivity(ctx context.Context, in GenerateQuestionsInput) (GenerateQuestionsOutput, error) {
	pipeline, err := a.services.PipelineFor(in.LLMProvider)
	if err != nil {
		return GenerateQuestionsOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidArgument", err)
	}
	count := in.Count
	if a.cfg.MaxQuestions > 0 && count > a.cfg.MaxQuestions {
		count = a.cfg.MaxQuestions
	}
	qs, err := pipeline.GenerateForMaterial(ctx, in.MaterialID, count)
	if err != nil {
		if errors.Is(err, util.ErrMaterialNotFound) || errors.Is(err, util.ErrMaterialNotReady) || errors.Is(err, util.ErrInvalidArgument) {
			return GenerateQuestionsOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidArgument", err)
		}
		return GenerateQuestionsOutput{}, fmt.Errorf("generate questions for %s: %w", in.MaterialID, err)
	}
	rag.TagTopic(qs, in.Topic)
	if err := a.store.SaveQuestions(ctx, qs); err != nil {
		return GenerateQuestionsOutput{}, err
	}
	out := GenerateQuestionsOutput{QuestionIDs: make([]string, 0, len(qs))}
	for _, q := range qs {
		out.QuestionIDs = append(out.QuestionIDs, q.QuestionID)
	}
	return out, nil
}

// IngestMaterial runs the ingestion steps in process, in the order the
// ingest workflow runs them. It is used when no Temporal worker is available.
func (a *Activities) IngestMaterial(ctx context.Context, materialID, path, fileType string) (string, error) {
	fail := func(reason string) (string, error) {
		if err := a.store.UpdateMaterialStatus(ctx, materialID, models.MaterialFailed, reason); err != nil {
			return "", err
		}
		return models.MaterialFailed, nil
	}
	text, err := rag.ExtractText(path, fileType)
	if errors.Is(err, util.ErrNoExtractableText) {
		return fail("no extractable text found in document")
	}
	if err != nil {
		return fail("text extraction failed: " + err.Error())
	}
	if _, err := a.BuildChunksActivity(ctx, BuildChunksInput{MaterialID: materialID, Text: text}); err != nil {
		return fail("chunking failed: " + err.Error())
	}
	if err := a.store.UpdateMaterialStatus(ctx, materialID, models.MaterialReady, ""); err != nil {
		return "", err
	}
	return models.MaterialReady, nil
}
