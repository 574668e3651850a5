package db

import (
	"encoding/json"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

// SaveQuestions stores a generated batch so it can be reviewed and reused.
// Options and explanation are kept as JSON blobs.
func (db *DB) SaveQuestions(questions []models.Question, createdBy int) ([]models.Question, error) {
	utils.LogDB("Saving %d questions for user %d", len(questions), createdBy)
	start := time.Now()

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO questions (subject, topic, statement, options, correct_index, explanation, difficulty, points, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	saved := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return nil, err
		}

		explanationJSON, err := json.Marshal(q.Explanation)
		if err != nil {
			return nil, err
		}

		points := q.Points
		if points == 0 {
			points = models.DefaultQuestionPoints
		}

		result, err := stmt.Exec(q.Subject, q.Topic, q.Statement, string(optionsJSON),
			q.CorrectIdx, string(explanationJSON), q.Difficulty, points, createdBy)
		if err != nil {
			utils.LogError("SaveQuestions insert failed: %v", err)
			return nil, err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}

		q.ID = int(id)
		q.Points = points
		saved = append(saved, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	utils.LogDB("Saved %d questions in %v", len(saved), time.Since(start))
	return saved, nil
}

func (db *DB) GetQuestionByID(id int) (*models.Question, error) {
	utils.LogDB("Getting question %d", id)

	var q models.Question
	var optionsJSON, explanationJSON string
	err := db.QueryRow(`
		SELECT id, subject, topic, statement, options, correct_index, explanation, difficulty, points, created_at
		FROM questions WHERE id = ?
	`, id).Scan(&q.ID, &q.Subject, &q.Topic, &q.Statement, &optionsJSON,
		&q.CorrectIdx, &explanationJSON, &q.Difficulty, &q.Points, &q.CreatedAt)
	if err != nil {
		utils.LogError("GetQuestionByID(%d) failed: %v", id, err)
		return nil, err
	}

	if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
		utils.LogError("Question %d has corrupt options JSON: %v", id, err)
		return nil, err
	}
	if explanationJSON != "" {
		if err := json.Unmarshal([]byte(explanationJSON), &q.Explanation); err != nil {
			utils.LogError("Question %d has corrupt explanation JSON: %v", id, err)
			return nil, err
		}
	}

	return &q, nil
}
