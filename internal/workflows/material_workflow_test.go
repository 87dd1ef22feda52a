package workflows

import (
	"context"
	"errors"
	"testing"

	"studyrag/internal/activities"
	"studyrag/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerIngestActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.ExtractTextInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "BuildChunksActivity", func(context.Context, activities.BuildChunksInput) (activities.BuildChunksOutput, error) {
		return activities.BuildChunksOutput{}, nil
	})
	registerActivityName(env, "UpdateMaterialStatusActivity", func(context.Context, activities.UpdateMaterialStatusInput) error { return nil })
}

func TestMaterialIngestWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(MaterialIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, activities.ExtractTextInput{MaterialID: "m1", FilePath: "/tmp/notes.txt", FileType: "text/plain"}).
		Return(activities.ExtractTextOutput{Text: "Anxiety is a normal response to stress."}, nil)
	env.OnActivity("BuildChunksActivity", mock.Anything, activities.BuildChunksInput{MaterialID: "m1", Text: "Anxiety is a normal response to stress."}).
		Return(activities.BuildChunksOutput{Chunks: 1, Embedded: 1, EmbeddingModel: "mock"}, nil)
	env.OnActivity("UpdateMaterialStatusActivity", mock.Anything, activities.UpdateMaterialStatusInput{MaterialID: "m1", Status: models.MaterialReady}).
		Return(nil).Once()

	env.ExecuteWorkflow(MaterialIngestWorkflow, MaterialIngestInput{MaterialID: "m1", FilePath: "/tmp/notes.txt", FileType: "text/plain"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, models.MaterialReady, out)

	res, err := env.QueryWorkflow(QueryGetMaterialStatus)
	require.NoError(t, err)
	var st MaterialStatus
	require.NoError(t, res.Get(&st))
	require.Equal(t, 1, st.Chunks)
	require.Equal(t, "done", st.Steps["build_chunks"])
	env.AssertExpectations(t)
}

func TestMaterialIngestWorkflowNoTextMarksFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(MaterialIngestWorkflow)
	registerIngestActivities(env)

	noText := temporal.NewNonRetryableApplicationError("no extractable text found in document", activities.ErrTypeNoText, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{}, noText)
	env.OnActivity("UpdateMaterialStatusActivity", mock.Anything, mock.MatchedBy(func(in activities.UpdateMaterialStatusInput) bool {
		return in.Status == models.MaterialFailed && in.FailReason != ""
	})).Return(nil).Once()

	env.ExecuteWorkflow(MaterialIngestWorkflow, MaterialIngestInput{MaterialID: "m1", FilePath: "/tmp/scan.pdf", FileType: "application/pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, models.MaterialFailed, out)
	env.AssertExpectations(t)
}

func TestMaterialIngestWorkflowChunkFailureMarksFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(MaterialIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{Text: "text"}, nil)
	env.OnActivity("BuildChunksActivity", mock.Anything, mock.Anything).
		Return(activities.BuildChunksOutput{}, temporal.NewNonRetryableApplicationError("disk full", "Storage", errors.New("disk full")))
	env.OnActivity("UpdateMaterialStatusActivity", mock.Anything, mock.MatchedBy(func(in activities.UpdateMaterialStatusInput) bool {
		return in.Status == models.MaterialFailed
	})).Return(nil).Once()

	env.ExecuteWorkflow(MaterialIngestWorkflow, MaterialIngestInput{MaterialID: "m1", FilePath: "/tmp/notes.txt", FileType: "text/plain"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, models.MaterialFailed, out)
}

func TestQuestionGenerationWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(QuestionGenerationWorkflow)
	registerActivityName(env, "GenerateQuestionsActivity", func(context.Context, activities.GenerateQuestionsInput) (activities.GenerateQuestionsOutput, error) {
		return activities.GenerateQuestionsOutput{}, nil
	})
	env.OnActivity("GenerateQuestionsActivity", mock.Anything, activities.GenerateQuestionsInput{MaterialID: "m1", Count: 5, Topic: "Anxiety"}).
		Return(activities.GenerateQuestionsOutput{QuestionIDs: []string{"q1", "q2"}}, nil)

	env.ExecuteWorkflow(QuestionGenerationWorkflow, QuestionGenerationInput{MaterialID: "m1", Topic: "Anxiety"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out QuestionGenerationOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, []string{"q1", "q2"}, out.QuestionIDs)
}

func TestWorkflowIDs(t *testing.T) {
	require.Equal(t, "ingest-abc-def", IngestWorkflowID("ABC_def"))
	require.Equal(t, "generate-m1-r-1", GenerationWorkflowID("m1", "r.1"))
}
