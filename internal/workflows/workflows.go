package workflows

import (
	"errors"
	"strings"
	"time"

	"studyrag/internal/activities"
	"studyrag/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetMaterialStatus = "GetMaterialStatus"

// IngestWorkflowID is the workflow id used for a material's ingestion run.
func IngestWorkflowID(materialID string) string {
	return "ingest-" + sanitizeID(materialID)
}

func GenerationWorkflowID(materialID, requestID string) string {
	return "generate-" + sanitizeID(materialID) + "-" + sanitizeID(requestID)
}

// MaterialIngestWorkflow extracts, chunks and embeds an uploaded material and
// marks it ready. A file with no text ends the run with status failed.
func MaterialIngestWorkflow(ctx workflow.Context, input MaterialIngestInput) (string, error) {
	status := MaterialStatus{
		MaterialID:  input.MaterialID,
		CurrentStep: "init",
		Status:      models.MaterialProcessing,
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetMaterialStatus, func() (MaterialStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	fail := func(reason string) (string, error) {
		status.Status = models.MaterialFailed
		status.FailReason = reason
		status.Steps[status.CurrentStep] = "failed"
		err := workflow.ExecuteActivity(ctx, "UpdateMaterialStatusActivity", activities.UpdateMaterialStatusInput{
			MaterialID: input.MaterialID,
			Status:     models.MaterialFailed,
			FailReason: reason,
		}).Get(ctx, nil)
		return status.Status, err
	}

	status.CurrentStep = "extract_text"
	status.Steps[status.CurrentStep] = "processing"
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{
		MaterialID: input.MaterialID,
		FilePath:   input.FilePath,
		FileType:   input.FileType,
	}).Get(ctx, &textOut); err != nil {
		if isNoTextError(err) {
			return fail("no extractable text found in document")
		}
		return fail("text extraction failed: " + err.Error())
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "build_chunks"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.BuildChunksOutput
	if err := workflow.ExecuteActivity(ctx, "BuildChunksActivity", activities.BuildChunksInput{
		MaterialID:   input.MaterialID,
		Text:         textOut.Text,
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
	}).Get(ctx, &chunkOut); err != nil {
		if isNoTextError(err) {
			return fail("no extractable text found in document")
		}
		return fail("chunking failed: " + err.Error())
	}
	status.Chunks = chunkOut.Chunks
	status.Embedded = chunkOut.Embedded
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "mark_ready"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "UpdateMaterialStatusActivity", activities.UpdateMaterialStatusInput{
		MaterialID: input.MaterialID,
		Status:     models.MaterialReady,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = models.MaterialReady
	return status.Status, nil
}

// QuestionGenerationWorkflow runs one batch generation and persists the result.
func QuestionGenerationWorkflow(ctx workflow.Context, input QuestionGenerationInput) (QuestionGenerationOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out activities.GenerateQuestionsOutput
	if err := workflow.ExecuteActivity(ctx, "GenerateQuestionsActivity", activities.GenerateQuestionsInput{
		MaterialID:  input.MaterialID,
		Count:       defaultCount(input.Count),
		Topic:       input.Topic,
		LLMProvider: input.LLMProvider,
	}).Get(ctx, &out); err != nil {
		return QuestionGenerationOutput{}, err
	}
	return QuestionGenerationOutput{MaterialID: input.MaterialID, QuestionIDs: out.QuestionIDs}, nil
}

func isNoTextError(err error) bool {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == activities.ErrTypeNoText {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no extractable text")
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

func defaultCount(n int) int {
	if n <= 0 {
		return 5
	}
	return n
}
