package models

import "time"

// Challenge is a prize-eligible ranked competition tied to an official exam.
type Challenge struct {
	ID             int       `json:"id"`
	Title          string    `json:"title"`
	OfficialExamID int       `json:"official_exam_id"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	PrizePool      float64   `json:"prize_pool"`
	CreatedAt      time.Time `json:"created_at"`
}

// Reward status flags. Transitions happen through manual admin actions only.
const (
	RewardUnclaimed = "unclaimed"
	RewardPending   = "pending"
	RewardPaid      = "paid"
)

type Reward struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	ChallengeID int       `json:"challenge_id"`
	Position    int       `json:"position"`
	PrizeAmount float64   `json:"prize_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RewardStatusRequest struct {
	Status string `json:"status"`
}

// OfficialExam is an admin-uploaded past exam used for practice and
// challenges. Questions are stored as an opaque JSON blob.
type OfficialExam struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Year            int        `json:"year"`
	DurationSeconds int        `json:"duration_seconds"`
	Questions       []Question `json:"questions,omitempty"`
	QuestionCount   int        `json:"question_count"`
	CreatedBy       int        `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

type UsageLog struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Kind      string    `json:"kind"` // question_generation, essay_feedback
	Cost      int       `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}
