package rag

import (
	"strings"

	"studyrag/internal/models"
	"studyrag/internal/util"
)

const (
	minKeyStatementRunes = 20
	sourceExcerptRunes   = 500
)

// FallbackQuestion builds a question from the chunk alone. It never calls a
// capability and always yields four answers with index 0 correct.
func FallbackQuestion(chunkText string) models.GeneratedQuestion {
	key := keyStatement(chunkText)
	if key == "" {
		answers := []string{"Concept A", "Concept B", "Concept C", "Concept D"}
		return models.GeneratedQuestion{
			Question:           "Based on the provided material, what is the main concept discussed?",
			Answers:            answers,
			CorrectAnswerIndex: 0,
			CorrectAnswer:      answers[0],
			Explanation:        util.Prefix(chunkText, 300),
			SourceTextExcerpt:  util.Prefix(chunkText, sourceExcerptRunes),
			Difficulty:         models.DifficultyMedium,
		}
	}
	correct := util.Prefix(key, 50) + "..."
	return models.GeneratedQuestion{
		Question: `Which of the following best describes: "` + util.Prefix(key, 100) + `..."?`,
		Answers: []string{
			correct,
			"An alternative perspective on the topic",
			"A different but related concept",
			"A contrasting viewpoint",
		},
		CorrectAnswerIndex: 0,
		CorrectAnswer:      correct,
		Explanation:        "According to the material: " + key,
		SourceTextExcerpt:  util.Prefix(chunkText, sourceExcerptRunes),
		Difficulty:         models.DifficultyMedium,
	}
}

// BasicQuestion is used when no chunk of a material carries an embedding.
func BasicQuestion(chunkText string) models.GeneratedQuestion {
	first := strings.TrimSpace(chunkText)
	if parts := util.SplitSentences(chunkText); len(parts) > 0 {
		first = strings.TrimSpace(parts[0])
	}
	answers := []string{
		"It represents the primary concept",
		"It is a secondary consideration",
		"It is not important",
		"It contradicts the main point",
	}
	return models.GeneratedQuestion{
		Question:           `Based on the material, what is the significance of: "` + util.Prefix(first, 100) + `"?`,
		Answers:            answers,
		CorrectAnswerIndex: 0,
		CorrectAnswer:      answers[0],
		Explanation:        first,
		SourceTextExcerpt:  util.Prefix(chunkText, sourceExcerptRunes),
		Difficulty:         models.DifficultyMedium,
	}
}

func keyStatement(text string) string {
	for _, s := range util.SplitSentences(text) {
		s = strings.TrimSpace(s)
		if len([]rune(s)) > minKeyStatementRunes {
			return s
		}
	}
	return ""
}
