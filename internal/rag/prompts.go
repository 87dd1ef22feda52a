package rag

import (
	"fmt"
	"strings"

	"studyrag/internal/providers"
)

const QuestionPromptVersion = "v1"

const QuestionPromptTemplate = `You are an expert educator writing accurate study questions.
Write ONE multiple choice question based ONLY on the material below.

Rules:
- The question must be answerable from the material.
- Give exactly 4 answer options. All must be plausible and only ONE is correct.
- The correct answer must be directly supported by the material.
- The explanation must cite the material.
- Return ONLY valid JSON, no other text.

Output STRICT JSON with this schema:
{
  "question": "The question text?",
  "answers": ["Option A", "Option B", "Option C", "Option D"],
  "correctAnswerIndex": 0,
  "explanation": "Why this is correct based on the material",
  "topic": "Main topic covered"
}
`

func BuildQuestionPrompt(chunkText string) string {
	return QuestionPromptTemplate + "\n" + providers.MaterialMarker + "\n" + strings.TrimSpace(chunkText)
}

func PromptHash(promptVersion string) string {
	return fmt.Sprintf("question_prompt_%s", strings.TrimSpace(promptVersion))
}

const FlashcardPromptVersion = "v1"

const flashcardPromptTemplate = `Generate %d study flashcards based ONLY on the material below.
Each flashcard has a question or prompt on one side and its answer on the other.

Return ONLY a valid JSON array, no other text:
[{"question": "What is X?", "answer": "X is ..."}]
`

func BuildFlashcardPrompt(content string, count int) string {
	return fmt.Sprintf(flashcardPromptTemplate, count) + "\n" + providers.MaterialMarker + "\n" + strings.TrimSpace(content)
}

const AnswerPromptVersion = "v1"

// NotInMaterialReply is what the model is told to say when the material does
// not answer the question.
const NotInMaterialReply = "I cannot find the answer to this question in the provided material."

const answerPromptTemplate = `You are a helpful study assistant. Using ONLY the material below, answer the question accurately and clearly.
If the answer cannot be found in the material, reply exactly: %s

Question: %s
`

func BuildAnswerPrompt(question string, excerpts []string) string {
	return fmt.Sprintf(answerPromptTemplate, NotInMaterialReply, strings.TrimSpace(question)) +
		"\n" + providers.MaterialMarker + "\n" + strings.Join(excerpts, "\n\n")
}
