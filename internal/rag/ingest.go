package rag

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studyrag/internal/logger"
	"studyrag/internal/models"
	"studyrag/internal/util"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

type IngestOptions struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbeddingModel string
}

// BuildChunks splits text and embeds each chunk on its own. A chunk whose
// embedding fails is kept without one; ingestion never fails on embeddings.
func BuildChunks(ctx context.Context, embedder Embedder, materialID, text string, opts IngestOptions, log *logger.Logger) ([]models.Chunk, error) {
	if log == nil {
		log = logger.Nop()
	}
	text = util.SanitizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, util.ErrNoExtractableText
	}
	parts, err := util.ChunkText(text, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]models.Chunk, 0, len(parts))
	failed := 0
	for i, part := range parts {
		c := models.Chunk{
			ChunkID:    uuid.NewString(),
			MaterialID: materialID,
			ChunkIndex: i,
			Text:       part,
			CreatedAt:  now,
		}
		if embedder != nil {
			vec, err := embedder.Embed(ctx, part)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failed++
				log.Warn("chunk embedding failed, storing without embedding", "material_id", materialID, "chunk_index", i, "error", err)
			} else {
				c.Embedding = vec
				c.EmbeddingModel = opts.EmbeddingModel
			}
		}
		out = append(out, c)
	}
	log.Info("chunks built", "material_id", materialID, "chunks", len(out), "embedding_failures", failed)
	return out, nil
}

// FileTypeFor maps an upload name to the stored file type.
func FileTypeFor(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf", nil
	case ".txt", ".md", ".text":
		return "text/plain", nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", util.ErrInvalidArgument, filepath.Ext(name))
	}
}

// ExtractText reads a stored material file as plain text.
func ExtractText(path, fileType string) (string, error) {
	var text string
	switch fileType {
	case "application/pdf":
		f, r, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("open pdf: %w", err)
		}
		defer f.Close()
		reader, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("extract pdf text: %w", err)
		}
		buf := new(strings.Builder)
		if _, err := io.Copy(buf, reader); err != nil {
			return "", fmt.Errorf("read extracted text: %w", err)
		}
		text = buf.String()
	case "text/plain":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		text = string(raw)
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", util.ErrInvalidArgument, fileType)
	}
	text = util.SanitizeText(strings.TrimSpace(text))
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}
