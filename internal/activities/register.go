package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.BuildChunksActivity)
	w.RegisterActivity(a.UpdateMaterialStatusActivity)
	w.RegisterActivity(a.GenerateQuestionsActivity)
}
