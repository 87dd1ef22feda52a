package workflows

type MaterialIngestInput struct {
	MaterialID   string `json:"material_id"`
	FilePath     string `json:"file_path"`
	FileType     string `json:"file_type"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

type QuestionGenerationInput struct {
	MaterialID  string `json:"material_id"`
	Count       int    `json:"count"`
	Topic       string `json:"topic,omitempty"`
	LLMProvider string `json:"llm_provider,omitempty"`
}

type QuestionGenerationOutput struct {
	MaterialID  string   `json:"material_id"`
	QuestionIDs []string `json:"question_ids"`
}

type MaterialStatus struct {
	MaterialID  string            `json:"material_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Chunks      int               `json:"chunks"`
	Embedded    int               `json:"embedded"`
	Steps       map[string]string `json:"steps"`
}
