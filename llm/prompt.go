package llm

import "fmt"

// Prompt templates. The upstream is asked for Portuguese exam content in a
// fixed JSON shape so parsing stays deterministic.

const questionsTemplate = `Gere %d questões de múltipla escolha no estilo ENEM sobre %s, tópico: %s, dificuldade: %s.

Responda APENAS com um documento JSON válido, sem texto adicional, no formato:
{
  "questoes": [
    {
      "enunciado": "texto da questão",
      "alternativas": {"A": "...", "B": "...", "C": "...", "D": "...", "E": "..."},
      "alternativa_correta": "A",
      "explicacao": "por que a alternativa correta está certa",
      "dificuldade": "facil|medio|dificil"
    }
  ]
}

Cada questão deve ter exatamente 5 alternativas (A a E) e uma única correta.`

func BuildQuestionsPrompt(count int, subject, topic, difficulty string) string {
	if topic == "" {
		topic = "geral"
	}
	if difficulty == "" {
		difficulty = "medio"
	}
	return fmt.Sprintf(questionsTemplate, count, subject, topic, difficulty)
}

const essayTemplate = `Avalie a redação abaixo segundo os critérios do ENEM (competências 1 a 5).
Tema: %s

Redação:
%s

Responda APENAS com um documento JSON válido no formato:
{"feedback": "avaliação detalhada com nota por competência e nota final de 0 a 1000"}`

func BuildEssayPrompt(theme, text string) string {
	return fmt.Sprintf(essayTemplate, theme, text)
}
