package db

import (
	"encoding/json"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

func (db *DB) CreateOfficialExam(exam *models.OfficialExam) (*models.OfficialExam, error) {
	utils.LogDB("Creating official exam: %s (%d), %d questions", exam.Title, exam.Year, len(exam.Questions))

	questionsJSON, err := json.Marshal(exam.Questions)
	if err != nil {
		return nil, err
	}

	result, err := db.Exec(`
		INSERT INTO official_exams (title, year, duration_seconds, questions, created_by)
		VALUES (?, ?, ?, ?, ?)
	`, exam.Title, exam.Year, exam.DurationSeconds, string(questionsJSON), exam.CreatedBy)
	if err != nil {
		utils.LogError("CreateOfficialExam failed: %v", err)
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetOfficialExam(int(id))
}

func (db *DB) GetOfficialExam(id int) (*models.OfficialExam, error) {
	utils.LogDB("Getting official exam %d", id)

	var exam models.OfficialExam
	var questionsJSON string
	err := db.QueryRow(`
		SELECT id, title, year, duration_seconds, questions, created_by, created_at
		FROM official_exams WHERE id = ?
	`, id).Scan(&exam.ID, &exam.Title, &exam.Year, &exam.DurationSeconds,
		&questionsJSON, &exam.CreatedBy, &exam.CreatedAt)
	if err != nil {
		utils.LogError("GetOfficialExam(%d) failed: %v", id, err)
		return nil, err
	}

	if err := json.Unmarshal([]byte(questionsJSON), &exam.Questions); err != nil {
		utils.LogError("Official exam %d has corrupt questions JSON: %v", id, err)
		return nil, err
	}
	exam.QuestionCount = len(exam.Questions)

	return &exam, nil
}

// ListOfficialExams returns exam metadata without the question payloads.
func (db *DB) ListOfficialExams() ([]models.OfficialExam, error) {
	utils.LogDB("Listing official exams")
	start := time.Now()

	rows, err := db.Query(`
		SELECT id, title, year, duration_seconds, json_array_length(questions), created_by, created_at
		FROM official_exams ORDER BY year DESC, title
	`)
	if err != nil {
		utils.LogError("ListOfficialExams failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var exams []models.OfficialExam
	for rows.Next() {
		var exam models.OfficialExam
		if err := rows.Scan(&exam.ID, &exam.Title, &exam.Year, &exam.DurationSeconds,
			&exam.QuestionCount, &exam.CreatedBy, &exam.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, exam)
	}

	utils.LogDB("Listed %d official exams in %v", len(exams), time.Since(start))
	return exams, rows.Err()
}
