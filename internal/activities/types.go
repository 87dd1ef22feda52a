package activities

type ExtractTextInput struct {
	MaterialID string `json:"material_id"`
	FilePath   string `json:"file_path"`
	FileType   string `json:"file_type"`
}

type ExtractTextOutput struct {
	Text string `json:"text"`
}

type BuildChunksInput struct {
	MaterialID   string `json:"material_id"`
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

type BuildChunksOutput struct {
	Chunks         int    `json:"chunks"`
	Embedded       int    `json:"embedded"`
	EmbeddingModel string `json:"embedding_model"`
}

type UpdateMaterialStatusInput struct {
	MaterialID string `json:"material_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}

type GenerateQuestionsInput struct {
	MaterialID  string `json:"material_id"`
	Count       int    `json:"count"`
	Topic       string `json:"topic,omitempty"`
	LLMProvider string `json:"llm_provider,omitempty"`
}

type GenerateQuestionsOutput struct {
	QuestionIDs []string `json:"question_ids"`
}
