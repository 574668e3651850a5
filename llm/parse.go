package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/provafacil/ProvaFacilApi/models"
)

// Upstream payload: a "questoes" array with A..E keyed alternatives. This is
// remapped once at ingestion into an ordered options slice plus a zero-based
// correct index.
type rawQuestionsPayload struct {
	Questoes []rawQuestion `json:"questoes"`
}

type rawQuestion struct {
	Enunciado          string             `json:"enunciado"`
	Alternativas       map[string]string  `json:"alternativas"`
	AlternativaCorreta string             `json:"alternativa_correta"`
	Explicacao         models.Explanation `json:"explicacao"`
	Dificuldade        string             `json:"dificuldade"`
}

var optionLetters = []string{"A", "B", "C", "D", "E"}

// ParseQuestions turns the candidate text blob into application questions.
// Malformed JSON or an incomplete alternatives object is a hard failure; we
// never guess at partially valid content.
func ParseQuestions(text, subject, topic string) ([]models.Question, error) {
	var payload rawQuestionsPayload
	if err := json.Unmarshal([]byte(stripFences(text)), &payload); err != nil {
		return nil, fmt.Errorf("malformed generation payload: %w", err)
	}

	if len(payload.Questoes) == 0 {
		return nil, fmt.Errorf("generation payload contains no questions")
	}

	questions := make([]models.Question, 0, len(payload.Questoes))
	for i, raw := range payload.Questoes {
		options := make([]string, 0, len(optionLetters))
		for _, letter := range optionLetters {
			option, ok := raw.Alternativas[letter]
			if !ok || option == "" {
				return nil, fmt.Errorf("question %d is missing alternative %s", i+1, letter)
			}
			options = append(options, option)
		}

		correctIdx := -1
		correct := strings.ToUpper(strings.TrimSpace(raw.AlternativaCorreta))
		for idx, letter := range optionLetters {
			if correct == letter {
				correctIdx = idx
				break
			}
		}
		if correctIdx < 0 {
			return nil, fmt.Errorf("question %d has invalid correct alternative %q", i+1, raw.AlternativaCorreta)
		}

		if raw.Enunciado == "" {
			return nil, fmt.Errorf("question %d has an empty statement", i+1)
		}

		questions = append(questions, models.Question{
			Subject:     subject,
			Topic:       topic,
			Statement:   raw.Enunciado,
			Options:     options,
			CorrectIdx:  correctIdx,
			Explanation: raw.Explicacao,
			Difficulty:  normalizeDifficulty(raw.Dificuldade),
			Points:      models.DefaultQuestionPoints,
		})
	}

	return questions, nil
}

type rawEssayPayload struct {
	Feedback string `json:"feedback"`
}

func ParseEssayFeedback(text string) (string, error) {
	var payload rawEssayPayload
	if err := json.Unmarshal([]byte(stripFences(text)), &payload); err != nil {
		return "", fmt.Errorf("malformed essay feedback payload: %w", err)
	}
	if payload.Feedback == "" {
		return "", fmt.Errorf("essay feedback payload is empty")
	}
	return payload.Feedback, nil
}

// stripFences removes markdown code fences some models wrap around JSON
// output even when asked not to.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "facil", "fácil", "easy":
		return "easy"
	case "dificil", "difícil", "hard":
		return "hard"
	default:
		return "medium"
	}
}
