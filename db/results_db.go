package db

import (
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

// SaveExamResult persists a finished session. The unique session_id makes
// retried job deliveries idempotent: a duplicate insert is reported as
// already-saved, not an error.
func (db *DB) SaveExamResult(result *models.ExamResult) (int, error) {
	utils.LogDB("Saving exam result: session %s, user %d, score %d", result.SessionID, result.UserID, result.Score)
	start := time.Now()

	res, err := db.Exec(`
		INSERT OR IGNORE INTO exam_results
			(session_id, user_id, challenge_id, title, ranked, score, answered, total, disqualified, strikes, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.SessionID, result.UserID, result.ChallengeID, result.Title, result.Ranked,
		result.Score, result.Answered, result.Total, result.Disqualified, result.Strikes, result.FinishedAt)
	if err != nil {
		utils.LogError("SaveExamResult failed: %v (%v)", err, time.Since(start))
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		utils.LogDB("Exam result for session %s already saved, skipping", result.SessionID)
		var id int
		err := db.QueryRow(`SELECT id FROM exam_results WHERE session_id = ?`, result.SessionID).Scan(&id)
		return id, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	utils.LogDB("Exam result saved with ID %d in %v", id, time.Since(start))
	return int(id), nil
}

func (db *DB) GetUserResults(userID, limit int) ([]models.ExamResult, error) {
	utils.LogDB("Listing exam results for user %d", userID)

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, session_id, user_id, challenge_id, title, ranked, score, answered, total, disqualified, strikes, finished_at
		FROM exam_results WHERE user_id = ?
		ORDER BY finished_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		utils.LogError("GetUserResults(%d) failed: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var results []models.ExamResult
	for rows.Next() {
		var r models.ExamResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.UserID, &r.ChallengeID, &r.Title, &r.Ranked,
			&r.Score, &r.Answered, &r.Total, &r.Disqualified, &r.Strikes, &r.FinishedAt); err != nil {
			utils.LogError("Failed to scan exam result: %v", err)
			return nil, err
		}
		results = append(results, r)
	}

	return results, rows.Err()
}
