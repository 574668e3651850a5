// Package leaderboard ranks challenge participants with Redis sorted sets.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/provafacil/ProvaFacilApi/utils"
	"github.com/redis/go-redis/v9"
)

type Entry struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
	Rank     int64  `json:"rank"`
}

type Repository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) *Repository {
	return &Repository{client: client}
}

func challengeKey(challengeID int) string {
	return fmt.Sprintf("challenge:%d:leaderboard", challengeID)
}

// SubmitScore records a participant's score, keeping only their best run.
func (r *Repository) SubmitScore(ctx context.Context, challengeID int, username string, score int) error {
	key := challengeKey(challengeID)

	// ZAddGT keeps the highest score per member
	err := r.client.ZAddGT(ctx, key, redis.Z{
		Score:  float64(score),
		Member: username,
	}).Err()
	if err != nil {
		utils.LogError("Failed to submit score for %s on challenge %d: %v", username, challengeID, err)
		return err
	}

	// Boards outlive their challenge window slightly, then expire on their own
	r.client.Expire(ctx, key, 90*24*time.Hour)
	return nil
}

// Top returns the best N participants, highest score first.
func (r *Repository) Top(ctx context.Context, challengeID int, limit int64) ([]Entry, error) {
	results, err := r.client.ZRevRangeWithScores(ctx, challengeKey(challengeID), 0, limit-1).Result()
	if err != nil {
		utils.LogError("Failed to fetch leaderboard for challenge %d: %v", challengeID, err)
		return nil, err
	}

	entries := make([]Entry, len(results))
	for i, result := range results {
		username, _ := result.Member.(string)
		entries[i] = Entry{
			Username: username,
			Score:    int64(result.Score),
			Rank:     int64(i + 1),
		}
	}
	return entries, nil
}

// Rank returns a single participant's position (1-based) and score, or
// rank 0 when they have no entry.
func (r *Repository) Rank(ctx context.Context, challengeID int, username string) (Entry, error) {
	key := challengeKey(challengeID)

	rank, err := r.client.ZRevRank(ctx, key, username).Result()
	if err == redis.Nil {
		return Entry{Username: username}, nil
	}
	if err != nil {
		return Entry{}, err
	}

	score, err := r.client.ZScore(ctx, key, username).Result()
	if err != nil && err != redis.Nil {
		return Entry{}, err
	}

	return Entry{
		Username: username,
		Score:    int64(score),
		Rank:     rank + 1,
	}, nil
}
