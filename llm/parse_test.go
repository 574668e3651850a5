package llm

import (
	"strings"
	"testing"
)

const validPayload = `{
	"questoes": [
		{
			"enunciado": "Qual evento marcou o fim da Segunda Guerra Mundial?",
			"alternativas": {
				"A": "A queda de Berlim",
				"B": "O ataque a Pearl Harbor",
				"C": "A rendicao do Japao",
				"D": "O desembarque na Normandia",
				"E": "A conferencia de Yalta"
			},
			"alternativa_correta": "C",
			"explicacao": "A rendicao formal do Japao em setembro de 1945 encerrou o conflito.",
			"dificuldade": "facil"
		}
	]
}`

func TestParseQuestionsValid(t *testing.T) {
	questions, err := ParseQuestions(validPayload, "historia", "segunda guerra")
	if err != nil {
		t.Fatalf("ParseQuestions failed: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}

	q := questions[0]
	if len(q.Options) != 5 {
		t.Fatalf("got %d options, want 5", len(q.Options))
	}
	if q.Options[0] != "A queda de Berlim" || q.Options[4] != "A conferencia de Yalta" {
		t.Errorf("options not in A..E order: %v", q.Options)
	}
	if q.CorrectIdx != 2 {
		t.Errorf("CorrectIdx = %d, want 2 (letter C)", q.CorrectIdx)
	}
	if q.Subject != "historia" || q.Topic != "segunda guerra" {
		t.Errorf("subject/topic not carried: %s / %s", q.Subject, q.Topic)
	}
	if q.Difficulty != "easy" {
		t.Errorf("difficulty = %q, want normalized %q", q.Difficulty, "easy")
	}
	if q.Explanation.Text() == "" {
		t.Error("explanation was dropped")
	}
}

func TestParseQuestionsAcceptsFencedOutput(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	if _, err := ParseQuestions(fenced, "historia", ""); err != nil {
		t.Fatalf("fenced payload rejected: %v", err)
	}
}

func TestParseQuestionsLowercaseCorrectLetter(t *testing.T) {
	payload := strings.Replace(validPayload, `"alternativa_correta": "C"`, `"alternativa_correta": " c "`, 1)
	questions, err := ParseQuestions(payload, "historia", "")
	if err != nil {
		t.Fatalf("ParseQuestions failed: %v", err)
	}
	if questions[0].CorrectIdx != 2 {
		t.Errorf("CorrectIdx = %d, want 2", questions[0].CorrectIdx)
	}
}

func TestParseQuestionsRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed JSON", `{"questoes": [`},
		{"no questions", `{"questoes": []}`},
		{
			"missing alternative",
			strings.Replace(validPayload, `"E": "A conferencia de Yalta"`, `"E": ""`, 1),
		},
		{
			"invalid correct letter",
			strings.Replace(validPayload, `"alternativa_correta": "C"`, `"alternativa_correta": "F"`, 1),
		},
		{
			"empty statement",
			strings.Replace(validPayload, `"enunciado": "Qual evento marcou o fim da Segunda Guerra Mundial?"`, `"enunciado": ""`, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseQuestions(tt.payload, "historia", ""); err == nil {
				t.Error("expected an error, got none")
			}
		})
	}
}

func TestParseQuestionsStructuredExplanation(t *testing.T) {
	payload := strings.Replace(validPayload,
		`"explicacao": "A rendicao formal do Japao em setembro de 1945 encerrou o conflito."`,
		`"explicacao": {"analysis": "contexto", "detailed_answer": "resposta completa", "metaphor": "como um jogo"}`,
		1)

	questions, err := ParseQuestions(payload, "historia", "")
	if err != nil {
		t.Fatalf("ParseQuestions failed: %v", err)
	}

	explanation := questions[0].Explanation
	if explanation.Structured == nil {
		t.Fatal("structured explanation was not recognized")
	}
	if explanation.Text() != "resposta completa" {
		t.Errorf("Text() = %q, want the detailed answer", explanation.Text())
	}
}

func TestParseEssayFeedback(t *testing.T) {
	feedback, err := ParseEssayFeedback("```json\n{\"feedback\": \"Boa argumentacao, revise a conclusao.\"}\n```")
	if err != nil {
		t.Fatalf("ParseEssayFeedback failed: %v", err)
	}
	if feedback != "Boa argumentacao, revise a conclusao." {
		t.Errorf("feedback = %q", feedback)
	}

	if _, err := ParseEssayFeedback(`{"feedback": ""}`); err == nil {
		t.Error("empty feedback should be rejected")
	}
	if _, err := ParseEssayFeedback("not json"); err == nil {
		t.Error("malformed feedback should be rejected")
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"facil", "easy"},
		{"Fácil", "easy"},
		{"dificil", "hard"},
		{"DIFÍCIL", "hard"},
		{"medio", "medium"},
		{"", "medium"},
		{"whatever", "medium"},
	}

	for _, tt := range tests {
		if got := normalizeDifficulty(tt.in); got != tt.want {
			t.Errorf("normalizeDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
