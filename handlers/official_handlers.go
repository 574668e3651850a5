package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type OfficialExamHandlers struct {
	db           *db.DB
	sessionStore *auth.SessionStore
}

func NewOfficialExamHandlers(database *db.DB, sessionStore *auth.SessionStore) *OfficialExamHandlers {
	return &OfficialExamHandlers{
		db:           database,
		sessionStore: sessionStore,
	}
}

func (oh *OfficialExamHandlers) HandleOfficialExams(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/official-exams" {
		switch r.Method {
		case http.MethodGet:
			oh.listExams(w)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/official-exams/")
	id, err := strconv.Atoi(path)
	if err != nil {
		utils.LogHTTP("Invalid official exam ID: %s", path)
		writeError(w, http.StatusBadRequest, "Invalid exam ID")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	exam, err := oh.db.GetOfficialExam(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Official exam not found")
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (oh *OfficialExamHandlers) listExams(w http.ResponseWriter) {
	exams, err := oh.db.ListOfficialExams()
	if err != nil {
		utils.LogError("Failed to list official exams: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch exams")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"exams": exams})
}

// UploadExam is admin-only: stores a complete official exam question set.
func (oh *OfficialExamHandlers) UploadExam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	var req models.OfficialExam
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Title == "" || len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "Title and questions are required")
		return
	}

	for i, q := range req.Questions {
		if len(q.Options) != 5 {
			writeError(w, http.StatusBadRequest,
				"Question "+strconv.Itoa(i+1)+" must have exactly 5 options")
			return
		}
		if q.CorrectIdx < 0 || q.CorrectIdx >= len(q.Options) {
			writeError(w, http.StatusBadRequest,
				"Question "+strconv.Itoa(i+1)+" has an invalid correct index")
			return
		}
	}

	req.CreatedBy = session.UserID

	exam, err := oh.db.CreateOfficialExam(&req)
	if err != nil {
		utils.LogError("Failed to create official exam: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to store exam")
		return
	}

	utils.LogHTTP("Official exam %d uploaded by user %d (%d questions)", exam.ID, session.UserID, exam.QuestionCount)
	writeJSON(w, http.StatusCreated, exam)
}
