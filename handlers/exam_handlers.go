package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/exam"
	"github.com/provafacil/ProvaFacilApi/jobs"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type ExamHandlers struct {
	db           *db.DB
	sessions     *exam.Store
	sessionStore *auth.SessionStore
	jobManager   *jobs.JobManager
}

func NewExamHandlers(database *db.DB, sessions *exam.Store, sessionStore *auth.SessionStore,
	jobManager *jobs.JobManager) *ExamHandlers {
	return &ExamHandlers{
		db:           database,
		sessions:     sessions,
		sessionStore: sessionStore,
		jobManager:   jobManager,
	}
}

// HandleExams routes /exams (create) and /exams/{id}[/action].
func (eh *ExamHandlers) HandleExams(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/exams" {
		if r.Method == http.MethodPost {
			eh.createSession(w, r)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/exams/")
	parts := strings.Split(path, "/")
	sessionID := parts[0]

	session, ok := eh.getOwnedSession(w, r, sessionID)
	if !ok {
		return
	}

	if len(parts) == 1 {
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, session.View())
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch parts[1] {
	case "start":
		eh.startSession(w, session)
	case "answer":
		eh.selectAnswer(w, r, session)
	case "next":
		writeJSON(w, http.StatusOK, map[string]int{"current_index": session.Next()})
	case "prev":
		writeJSON(w, http.StatusOK, map[string]int{"current_index": session.Prev()})
	case "strike":
		eh.reportStrike(w, r, session)
	case "finish":
		eh.finishSession(w, session)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (eh *ExamHandlers) getOwnedSession(w http.ResponseWriter, r *http.Request, sessionID string) (*exam.Session, bool) {
	userSession := getSessionFromContext(r.Context())

	session, exists := eh.sessions.Get(sessionID)
	if !exists {
		writeError(w, http.StatusNotFound, "Exam session not found")
		return nil, false
	}
	if session.UserID != userSession.UserID {
		writeError(w, http.StatusForbidden, "Not your exam session")
		return nil, false
	}
	return session, true
}

func (eh *ExamHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	userSession := getSessionFromContext(r.Context())

	var req models.CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	questions := req.Questions
	title := req.Title
	duration := req.DurationSeconds

	if req.OfficialExamID > 0 {
		officialExam, err := eh.db.GetOfficialExam(req.OfficialExamID)
		if err != nil {
			writeError(w, http.StatusNotFound, "Official exam not found")
			return
		}
		questions = officialExam.Questions
		if title == "" {
			title = officialExam.Title
		}
		if duration == 0 {
			duration = officialExam.DurationSeconds
		}
	}

	if len(questions) == 0 {
		writeError(w, http.StatusBadRequest, "An exam needs at least one question")
		return
	}
	if title == "" {
		title = "Simulado"
	}

	// Ranked sessions must belong to an open challenge
	if req.Ranked && req.ChallengeID != nil {
		challenge, err := eh.db.GetChallenge(*req.ChallengeID)
		if err != nil {
			writeError(w, http.StatusNotFound, "Challenge not found")
			return
		}
		now := timeNow()
		if now.Before(challenge.StartsAt) || now.After(challenge.EndsAt) {
			writeError(w, http.StatusConflict, "Challenge is not open")
			return
		}
	}

	session := exam.NewSession(userSession.UserID, title, questions, req.Ranked, req.ChallengeID, duration)
	eh.sessions.Put(session)

	utils.LogExam("Created session %s for user %d (%d questions, ranked=%t)",
		session.ID, userSession.UserID, len(questions), req.Ranked)
	writeJSON(w, http.StatusCreated, session.View())
}

func (eh *ExamHandlers) startSession(w http.ResponseWriter, session *exam.Session) {
	if err := session.Start(); err != nil {
		switch {
		case errors.Is(err, exam.ErrAlreadyStarted):
			writeError(w, http.StatusConflict, "Session already started")
		case errors.Is(err, exam.ErrAlreadyFinished):
			writeError(w, http.StatusConflict, "Session already finished")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to start session")
		}
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (eh *ExamHandlers) selectAnswer(w http.ResponseWriter, r *http.Request, session *exam.Session) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := session.SelectAnswer(req.QuestionID, req.OptionIndex); err != nil {
		switch {
		case errors.Is(err, exam.ErrNotInProgress):
			writeError(w, http.StatusConflict, "Session is not in progress")
		case errors.Is(err, exam.ErrUnknownQuestion):
			writeError(w, http.StatusBadRequest, "Question is not part of this session")
		case errors.Is(err, exam.ErrInvalidOption):
			writeError(w, http.StatusBadRequest, "Option index out of range")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to record answer")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (eh *ExamHandlers) reportStrike(w http.ResponseWriter, r *http.Request, session *exam.Session) {
	var req models.StrikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := session.ReportStrike(req.Kind)
	if err != nil {
		switch {
		case errors.Is(err, exam.ErrNotRanked):
			writeError(w, http.StatusBadRequest, "Strikes only apply to ranked sessions")
		case errors.Is(err, exam.ErrUnknownStrike):
			writeError(w, http.StatusBadRequest, "Unknown strike kind")
		case errors.Is(err, exam.ErrNotInProgress):
			writeError(w, http.StatusConflict, "Session is not in progress")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to record strike")
		}
		return
	}

	// Third strike: the session is already finished and disqualified
	if result != nil {
		eh.persistResult(result)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"disqualified": true,
			"result":       result,
		})
		return
	}

	writeJSON(w, http.StatusOK, session.View())
}

func (eh *ExamHandlers) finishSession(w http.ResponseWriter, session *exam.Session) {
	result, err := session.Finish()
	if err != nil {
		switch {
		case errors.Is(err, exam.ErrAlreadyFinished):
			writeError(w, http.StatusConflict, "Session already finished")
		case errors.Is(err, exam.ErrNotInProgress):
			writeError(w, http.StatusConflict, "Session has not started")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to finish session")
		}
		return
	}

	eh.persistResult(result)
	writeJSON(w, http.StatusOK, result)
}

// persistResult hands the result to the job queue; the HTTP response never
// waits on the datastore. Enqueue failures fall back to a direct write so a
// Redis outage cannot lose a finished exam.
func (eh *ExamHandlers) persistResult(result *models.ExamResult) {
	if err := eh.jobManager.QueueExamResult(result); err != nil {
		utils.LogError("Failed to enqueue exam result, writing directly: %v", err)
		if _, err := eh.db.SaveExamResult(result); err != nil {
			utils.LogError("Direct exam result write also failed for session %s: %v", result.SessionID, err)
		}
	}
}

// GetResults lists the caller's finished exams.
func (eh *ExamHandlers) GetResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	results, err := eh.db.GetUserResults(session.UserID, 50)
	if err != nil {
		utils.LogError("Failed to fetch results for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch results")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
