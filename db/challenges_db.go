package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

var ErrInvalidRewardTransition = errors.New("invalid reward status transition")

func (db *DB) CreateChallenge(c *models.Challenge) (*models.Challenge, error) {
	utils.LogDB("Creating challenge: %s (exam %d)", c.Title, c.OfficialExamID)

	result, err := db.Exec(`
		INSERT INTO challenges (title, official_exam_id, starts_at, ends_at, prize_pool)
		VALUES (?, ?, ?, ?, ?)
	`, c.Title, c.OfficialExamID, c.StartsAt, c.EndsAt, c.PrizePool)
	if err != nil {
		utils.LogError("CreateChallenge failed: %v", err)
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetChallenge(int(id))
}

func (db *DB) GetChallenge(id int) (*models.Challenge, error) {
	var c models.Challenge
	err := db.QueryRow(`
		SELECT id, title, official_exam_id, starts_at, ends_at, prize_pool, created_at
		FROM challenges WHERE id = ?
	`, id).Scan(&c.ID, &c.Title, &c.OfficialExamID, &c.StartsAt, &c.EndsAt, &c.PrizePool, &c.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			utils.LogError("GetChallenge(%d) failed: %v", id, err)
		}
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListChallenges(activeOnly bool, now time.Time) ([]models.Challenge, error) {
	utils.LogDB("Listing challenges (activeOnly=%t)", activeOnly)

	query := `
		SELECT id, title, official_exam_id, starts_at, ends_at, prize_pool, created_at
		FROM challenges ORDER BY starts_at DESC`
	args := []interface{}{}
	if activeOnly {
		query = `
		SELECT id, title, official_exam_id, starts_at, ends_at, prize_pool, created_at
		FROM challenges WHERE starts_at <= ? AND ends_at >= ? ORDER BY starts_at DESC`
		args = append(args, now, now)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		utils.LogError("ListChallenges failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var challenges []models.Challenge
	for rows.Next() {
		var c models.Challenge
		if err := rows.Scan(&c.ID, &c.Title, &c.OfficialExamID, &c.StartsAt, &c.EndsAt, &c.PrizePool, &c.CreatedAt); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (db *DB) CreateReward(r *models.Reward) (*models.Reward, error) {
	utils.LogDB("Creating reward: user %d, challenge %d, position %d, %.2f", r.UserID, r.ChallengeID, r.Position, r.PrizeAmount)

	result, err := db.Exec(`
		INSERT INTO rewards (user_id, challenge_id, position, prize_amount)
		VALUES (?, ?, ?, ?)
	`, r.UserID, r.ChallengeID, r.Position, r.PrizeAmount)
	if err != nil {
		utils.LogError("CreateReward failed: %v", err)
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetReward(int(id))
}

func (db *DB) GetReward(id int) (*models.Reward, error) {
	var r models.Reward
	err := db.QueryRow(`
		SELECT id, user_id, challenge_id, position, prize_amount, status, created_at, updated_at
		FROM rewards WHERE id = ?
	`, id).Scan(&r.ID, &r.UserID, &r.ChallengeID, &r.Position, &r.PrizeAmount, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			utils.LogError("GetReward(%d) failed: %v", id, err)
		}
		return nil, err
	}
	return &r, nil
}

func (db *DB) ListUserRewards(userID int) ([]models.Reward, error) {
	rows, err := db.Query(`
		SELECT id, user_id, challenge_id, position, prize_amount, status, created_at, updated_at
		FROM rewards WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		utils.LogError("ListUserRewards(%d) failed: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var r models.Reward
		if err := rows.Scan(&r.ID, &r.UserID, &r.ChallengeID, &r.Position, &r.PrizeAmount, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// UpdateRewardStatus applies an admin transition. Only forward moves are
// allowed: unclaimed -> pending -> paid.
func (db *DB) UpdateRewardStatus(id int, status string) (*models.Reward, error) {
	reward, err := db.GetReward(id)
	if err != nil {
		return nil, err
	}

	valid := (reward.Status == models.RewardUnclaimed && status == models.RewardPending) ||
		(reward.Status == models.RewardPending && status == models.RewardPaid)
	if !valid {
		utils.LogDB("Rejected reward %d transition %s -> %s", id, reward.Status, status)
		return nil, ErrInvalidRewardTransition
	}

	if _, err := db.Exec(`
		UPDATE rewards SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now(), id); err != nil {
		utils.LogError("UpdateRewardStatus(%d) failed: %v", id, err)
		return nil, err
	}

	return db.GetReward(id)
}
