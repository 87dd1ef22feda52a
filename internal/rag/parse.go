package rag

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ParseOutcome int

const (
	OutcomeOK ParseOutcome = iota
	OutcomeNoJSON
	OutcomeParseError
	OutcomeInvalid
	OutcomeCapabilityError
)

func (o ParseOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoJSON:
		return "no_json"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeCapabilityError:
		return "capability_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type ParsedQuestion struct {
	Question           string
	Answers            []string
	CorrectAnswerIndex int
	Explanation        string
	Topic              string
}

// ParseResult is the tagged result of reading model output. Question is only
// meaningful when Outcome is OutcomeOK; Err carries the cause otherwise.
type ParseResult struct {
	Outcome  ParseOutcome
	Question ParsedQuestion
	Err      error
}

// ExtractJSONObject returns the first balanced {...} in raw. Braces inside
// JSON strings are ignored.
func ExtractJSONObject(raw string) (string, bool) {
	return extractBalanced(raw, '{', '}')
}

// ExtractJSONArray returns the first balanced [...] in raw.
func ExtractJSONArray(raw string) (string, bool) {
	return extractBalanced(raw, '[', ']')
}

func extractBalanced(raw string, opener, closer byte) (string, bool) {
	start := strings.IndexByte(raw, opener)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

var errNoJSON = errors.New("no JSON object in model output")

func ParseQuestion(raw string) ParseResult {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return ParseResult{Outcome: OutcomeNoJSON, Err: errNoJSON}
	}
	var payload struct {
		Question           *string  `json:"question"`
		Answers            []string `json:"answers"`
		CorrectAnswerIndex *int     `json:"correctAnswerIndex"`
		Explanation        *string  `json:"explanation"`
		Topic              string   `json:"topic"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return ParseResult{Outcome: OutcomeParseError, Err: fmt.Errorf("decode question json: %w", err)}
	}
	q, err := validateParsed(payload.Question, payload.Answers, payload.CorrectAnswerIndex, payload.Explanation)
	if err != nil {
		return ParseResult{Outcome: OutcomeInvalid, Err: err}
	}
	q.Topic = strings.TrimSpace(payload.Topic)
	return ParseResult{Outcome: OutcomeOK, Question: q}
}

func validateParsed(question *string, answers []string, idx *int, explanation *string) (ParsedQuestion, error) {
	if question == nil || strings.TrimSpace(*question) == "" {
		return ParsedQuestion{}, errors.New("question missing")
	}
	if len(answers) < 2 {
		return ParsedQuestion{}, fmt.Errorf("need at least 2 answers, got %d", len(answers))
	}
	if idx == nil {
		return ParsedQuestion{}, errors.New("correctAnswerIndex missing")
	}
	if *idx < 0 || *idx >= len(answers) {
		return ParsedQuestion{}, fmt.Errorf("correctAnswerIndex %d out of range [0,%d)", *idx, len(answers))
	}
	if explanation == nil || strings.TrimSpace(*explanation) == "" {
		return ParsedQuestion{}, errors.New("explanation missing")
	}
	return ParsedQuestion{
		Question:           strings.TrimSpace(*question),
		Answers:            answers,
		CorrectAnswerIndex: *idx,
		Explanation:        strings.TrimSpace(*explanation),
	}, nil
}
