package api

import (
	"context"
	"fmt"

	"studyrag/internal/activities"
	"studyrag/internal/util"
	"studyrag/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

// Orchestrator starts the background work behind uploads and async generation.
type Orchestrator interface {
	StartIngest(ctx context.Context, in workflows.MaterialIngestInput) error
	StartGeneration(ctx context.Context, in workflows.QuestionGenerationInput) (string, error)
}

type TemporalOrchestrator struct {
	client    tclient.Client
	taskQueue string
}

func NewTemporalOrchestrator(c tclient.Client, taskQueue string) *TemporalOrchestrator {
	return &TemporalOrchestrator{client: c, taskQueue: taskQueue}
}

func (o *TemporalOrchestrator) StartIngest(ctx context.Context, in workflows.MaterialIngestInput) error {
	_, err := o.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       workflows.IngestWorkflowID(in.MaterialID),
		TaskQueue:                                o.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.MaterialIngestWorkflow, in)
	if err != nil {
		return fmt.Errorf("start ingest workflow: %w", err)
	}
	return nil
}

func (o *TemporalOrchestrator) StartGeneration(ctx context.Context, in workflows.QuestionGenerationInput) (string, error) {
	we, err := o.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:        workflows.GenerationWorkflowID(in.MaterialID, uuid.NewString()),
		TaskQueue: o.taskQueue,
	}, workflows.QuestionGenerationWorkflow, in)
	if err != nil {
		return "", fmt.Errorf("start generation workflow: %w", err)
	}
	return we.GetID(), nil
}

// InProcessOrchestrator ingests synchronously inside the API process.
type InProcessOrchestrator struct {
	acts *activities.Activities
}

func NewInProcessOrchestrator(acts *activities.Activities) *InProcessOrchestrator {
	return &InProcessOrchestrator{acts: acts}
}

func (o *InProcessOrchestrator) StartIngest(ctx context.Context, in workflows.MaterialIngestInput) error {
	_, err := o.acts.IngestMaterial(ctx, in.MaterialID, in.FilePath, in.FileType)
	return err
}

func (o *InProcessOrchestrator) StartGeneration(context.Context, workflows.QuestionGenerationInput) (string, error) {
	return "", fmt.Errorf("%w: async generation requires a temporal worker", util.ErrInvalidArgument)
}
