package models

import "time"

// ExamResult is the persisted outcome of a finished session.
type ExamResult struct {
	ID           int       `json:"id"`
	SessionID    string    `json:"session_id"`
	UserID       int       `json:"user_id"`
	ChallengeID  *int      `json:"challenge_id,omitempty"`
	Title        string    `json:"title"`
	Ranked       bool      `json:"ranked"`
	Score        int       `json:"score"` // integer percentage 0..100
	Answered     int       `json:"answered"`
	Total        int       `json:"total"`
	Disqualified bool      `json:"disqualified"`
	Strikes      int       `json:"strikes"`
	FinishedAt   time.Time `json:"finished_at"`
}

// CreateExamRequest starts a new session from an official exam or an inline
// question set (e.g. freshly generated ones held by the client).
type CreateExamRequest struct {
	Title           string     `json:"title"`
	OfficialExamID  int        `json:"official_exam_id,omitempty"`
	Questions       []Question `json:"questions,omitempty"`
	Ranked          bool       `json:"ranked"`
	ChallengeID     *int       `json:"challenge_id,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
}

// AnswerRequest selects an option for a question in an active session.
type AnswerRequest struct {
	QuestionID  int `json:"question_id"`
	OptionIndex int `json:"option_index"`
}

// StrikeRequest reports one integrity violation observed by the client.
type StrikeRequest struct {
	Kind string `json:"kind"` // tab_switch, fullscreen_exit, printscreen
}
