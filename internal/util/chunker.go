package util

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// ChunkText splits text into overlapping windows of chunkSize runes, advancing
// by chunkSize-overlap. Windows are trimmed and empty ones dropped; the walk
// continues until the start offset passes the end of the text, so the final
// windows may be shorter than chunkSize.
func ChunkText(text string, chunkSize, overlap int) ([]string, error) {
	if err := ValidateChunkConfig(chunkSize, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	step := chunkSize - overlap
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

func ValidateChunkConfig(chunkSize, overlap int) error {
	if overlap < 0 || chunkSize <= overlap {
		return fmt.Errorf("%w: chunk size %d must exceed overlap %d >= 0", ErrInvalidConfiguration, chunkSize, overlap)
	}
	return nil
}
