package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/credits"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/jobs"
	"github.com/provafacil/ProvaFacilApi/llm"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type GenerationHandlers struct {
	db           *db.DB
	ledger       *credits.Ledger
	llmClient    *llm.Client
	sessionStore *auth.SessionStore
	jobManager   *jobs.JobManager
}

func NewGenerationHandlers(database *db.DB, ledger *credits.Ledger, llmClient *llm.Client,
	sessionStore *auth.SessionStore, jobManager *jobs.JobManager) *GenerationHandlers {
	return &GenerationHandlers{
		db:           database,
		ledger:       ledger,
		llmClient:    llmClient,
		sessionStore: sessionStore,
		jobManager:   jobManager,
	}
}

// GenerateQuestions gates on credits (cost = count), proxies to the LLM,
// reshapes the payload and charges on success.
func (gh *GenerationHandlers) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	var req models.GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "Subject is required")
		return
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	if req.Count > models.MaxGenerationCount {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Count cannot exceed %d questions", models.MaxGenerationCount))
		return
	}

	check, err := gh.ledger.CheckCredits(session.UserID, req.Count)
	if err != nil {
		utils.LogError("Credit check failed for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to verify credits")
		return
	}
	if !check.Allowed {
		utils.LogHTTP("User %d denied generation: %d credits, %d needed", session.UserID, check.CurrentCredits, req.Count)
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":           "Insufficient credits",
			"plan":            check.Plan,
			"current_credits": check.CurrentCredits,
			"required":        req.Count,
		})
		return
	}

	prompt := llm.BuildQuestionsPrompt(req.Count, req.Subject, req.Topic, req.Difficulty)

	text, err := gh.llmClient.Generate(prompt, 0.7)
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "Generation service is busy, try again later")
			return
		}
		utils.LogError("Question generation failed for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Question generation failed")
		return
	}

	questions, err := llm.ParseQuestions(text, req.Subject, req.Topic)
	if err != nil {
		utils.LogError("Failed to parse generated questions: %v", err)
		writeError(w, http.StatusInternalServerError, "Generation returned an unusable payload")
		return
	}

	saved, err := gh.db.SaveQuestions(questions, session.UserID)
	if err != nil {
		utils.LogError("Failed to save generated questions: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to store questions")
		return
	}

	remaining, err := gh.ledger.DeductCredits(session.UserID, req.Count)
	if err != nil {
		// The questions were delivered; a failed charge is logged, not fatal
		utils.LogError("Failed to deduct %d credits from user %d: %v", req.Count, session.UserID, err)
		remaining = check.CurrentCredits
	}

	if err := gh.jobManager.QueueUsageLog(session.UserID, "question_generation", req.Count); err != nil {
		utils.LogError("Failed to queue usage log: %v", err)
	}

	utils.LogHTTP("Generated %d questions for user %d (%d credits left)", len(saved), session.UserID, remaining)
	writeJSON(w, http.StatusOK, models.GenerateQuestionsResponse{
		Questions:        saved,
		CreditsRemaining: remaining,
	})
}

// GenerateEssayFeedback costs a single credit.
func (gh *GenerationHandlers) GenerateEssayFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	var req models.EssayFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Theme == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "Theme and essay text are required")
		return
	}

	const cost = 1

	check, err := gh.ledger.CheckCredits(session.UserID, cost)
	if err != nil {
		utils.LogError("Credit check failed for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to verify credits")
		return
	}
	if !check.Allowed {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":           "Insufficient credits",
			"plan":            check.Plan,
			"current_credits": check.CurrentCredits,
			"required":        cost,
		})
		return
	}

	text, err := gh.llmClient.Generate(llm.BuildEssayPrompt(req.Theme, req.Text), 0.4)
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "Generation service is busy, try again later")
			return
		}
		utils.LogError("Essay feedback failed for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Essay correction failed")
		return
	}

	feedback, err := llm.ParseEssayFeedback(text)
	if err != nil {
		utils.LogError("Failed to parse essay feedback: %v", err)
		writeError(w, http.StatusInternalServerError, "Correction returned an unusable payload")
		return
	}

	remaining, err := gh.ledger.DeductCredits(session.UserID, cost)
	if err != nil {
		utils.LogError("Failed to deduct credit from user %d: %v", session.UserID, err)
		remaining = check.CurrentCredits
	}

	if err := gh.jobManager.QueueUsageLog(session.UserID, "essay_feedback", cost); err != nil {
		utils.LogError("Failed to queue usage log: %v", err)
	}

	writeJSON(w, http.StatusOK, models.EssayFeedbackResponse{
		Feedback:         feedback,
		CreditsRemaining: remaining,
	})
}
