package rag

import (
	"context"
	"time"
)

const (
	CallOK     = "ok"
	CallFailed = "failed"
)

// CallRecord is one generation capability call as seen by the pipeline.
type CallRecord struct {
	MaterialID string
	ChunkID    string
	Operation  string
	Provider   string
	Model      string
	PromptHash string
	Status     string
	ErrorClass string
	Error      string
	LatencyMS  int64
	CreatedAt  time.Time
}

type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}
