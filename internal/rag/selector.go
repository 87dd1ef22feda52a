package rag

import (
	"fmt"

	"studyrag/internal/util"
)

// SelectDiverse spreads count picks across items with an even stride over
// input order. It does not look at embeddings.
func SelectDiverse[T any](items []T, count int) ([]T, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", util.ErrInvalidArgument, count)
	}
	if len(items) <= count {
		return append([]T(nil), items...), nil
	}
	stride := len(items) / count
	out := make([]T, 0, count)
	for i := 0; i < count; i++ {
		idx := min(i*stride, len(items)-1)
		out = append(out, items[idx])
	}
	return out, nil
}
