package models

import "time"

const (
	MaterialProcessing = "processing"
	MaterialReady      = "ready"
	MaterialFailed     = "failed"
)

type Material struct {
	MaterialID  string    `json:"material_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FileType    string    `json:"file_type"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
	Status      string    `json:"status"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m Material) Ready() bool {
	return m.Status == MaterialReady
}

// Chunk is one window of a material's text. Embedding is nil when the
// embedding call failed at ingestion.
type Chunk struct {
	ChunkID        string    `json:"chunk_id"`
	MaterialID     string    `json:"material_id"`
	ChunkIndex     int       `json:"chunk_index"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"embedding,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type GeneratedQuestion struct {
	QuestionID         string     `json:"question_id"`
	MaterialID         string     `json:"material_id"`
	SourceChunkID      string     `json:"source_chunk_id"`
	Question           string     `json:"question"`
	Answers            []string   `json:"answers"`
	CorrectAnswerIndex int        `json:"correct_answer_index"`
	CorrectAnswer      string     `json:"correct_answer"`
	Explanation        string     `json:"explanation"`
	SourceTextExcerpt  string     `json:"source_text_excerpt"`
	Topic              string     `json:"topic,omitempty"`
	Difficulty         Difficulty `json:"difficulty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type ValidationResult struct {
	IsValid            bool     `json:"is_valid"`
	Confidence         float64  `json:"confidence"`
	SupportingExcerpts []string `json:"supporting_excerpts"`
}

type ChunkResult struct {
	MaterialID string  `json:"material_id"`
	Title      string  `json:"title"`
	ChunkID    string  `json:"chunk_id"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
	ChunkText  string  `json:"chunk_text,omitempty"`
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MaterialAnswer is a free-form answer to a question about one material,
// with the chunks it was drawn from.
type MaterialAnswer struct {
	MaterialID string        `json:"material_id"`
	Title      string        `json:"title"`
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Sources    []ChunkResult `json:"sources"`
}
