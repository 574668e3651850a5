package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Question is a generated or official multiple-choice question. Immutable
// once stored: five options, one correct index.
type Question struct {
	ID          int         `json:"id"`
	Subject     string      `json:"subject"`
	Topic       string      `json:"topic"`
	Statement   string      `json:"statement"`
	Options     []string    `json:"options"`
	CorrectIdx  int         `json:"correct_index"`
	Explanation Explanation `json:"explanation"`
	Difficulty  string      `json:"difficulty"`
	Points      int         `json:"points"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
}

// DefaultQuestionPoints is awarded per correct answer unless the question
// says otherwise.
const DefaultQuestionPoints = 100

// Explanation is a tagged variant: older stored questions carry a plain
// string, newer generations a structured object. The shape is resolved once
// when the payload is decoded, never at render time.
type Explanation struct {
	Legacy     string                 `json:"legacy,omitempty"`
	Structured *StructuredExplanation `json:"structured,omitempty"`
}

type StructuredExplanation struct {
	Analysis       string `json:"analysis,omitempty"`
	DetailedAnswer string `json:"detailed_answer,omitempty"`
	Metaphor       string `json:"metaphor,omitempty"`
}

func (e *Explanation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Explanation{Legacy: s}
		return nil
	}

	// Accept both our own marshaled form and the raw upstream object
	type alias Explanation
	var a alias
	if err := json.Unmarshal(data, &a); err == nil && (a.Legacy != "" || a.Structured != nil) {
		*e = Explanation(a)
		return nil
	}

	var st StructuredExplanation
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("explanation is neither a string nor a structured object: %w", err)
	}
	*e = Explanation{Structured: &st}
	return nil
}

func (e Explanation) IsZero() bool {
	return e.Legacy == "" && e.Structured == nil
}

// Text flattens the variant for places that only need prose.
func (e Explanation) Text() string {
	if e.Structured != nil {
		if e.Structured.DetailedAnswer != "" {
			return e.Structured.DetailedAnswer
		}
		return e.Structured.Analysis
	}
	return e.Legacy
}

// GenerateQuestionsRequest asks the generation proxy for a batch of questions.
type GenerateQuestionsRequest struct {
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

// MaxGenerationCount caps a single generation request.
const MaxGenerationCount = 100

// GenerateQuestionsResponse returns the batch plus the caller's remaining
// balance.
type GenerateQuestionsResponse struct {
	Questions        []Question `json:"questions"`
	CreditsRemaining int        `json:"credits_remaining"`
}

// EssayFeedbackRequest asks for structured feedback on a free-text essay.
type EssayFeedbackRequest struct {
	Theme string `json:"theme"`
	Text  string `json:"text"`
}

type EssayFeedbackResponse struct {
	Feedback         string `json:"feedback"`
	CreditsRemaining int    `json:"credits_remaining"`
}
