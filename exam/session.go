// Package exam tracks in-progress proctored exam sessions: navigation,
// answers, the countdown and integrity strikes.
package exam

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// MaxStrikes disqualifies a ranked session.
const MaxStrikes = 3

var (
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrAlreadyStarted   = errors.New("session already started")
	ErrAlreadyFinished  = errors.New("session already finished")
	ErrUnknownQuestion  = errors.New("question is not part of this session")
	ErrInvalidOption    = errors.New("option index out of range")
	ErrNotRanked        = errors.New("strikes only apply to ranked sessions")
	ErrUnknownStrike    = errors.New("unknown strike kind")
)

var strikeKinds = map[string]bool{
	"tab_switch":      true,
	"fullscreen_exit": true,
	"printscreen":     true,
}

// Session is one user's exam attempt. All state lives in memory; only the
// final result is persisted. Methods are safe for concurrent use.
type Session struct {
	ID          string
	UserID      int
	Title       string
	Ranked      bool
	ChallengeID *int

	mu           sync.Mutex
	status       Status
	questions    []models.Question
	current      int
	answers      map[int]int // question ID -> selected option index
	strikes      int
	disqualified bool
	timeLeft     int // seconds; negative means untimed
	timeExpired  bool
	startedAt    time.Time
	finishedAt   time.Time
	lastTouched  time.Time
}

// NewSession builds a session over a question set. Ranked sessions get their
// question order shuffled once here (anti-collusion) and wait for an explicit
// Start; unranked ones start immediately.
func NewSession(userID int, title string, questions []models.Question, ranked bool, challengeID *int, durationSeconds int) *Session {
	qs := make([]models.Question, len(questions))
	copy(qs, questions)

	if ranked {
		rand.Shuffle(len(qs), func(i, j int) {
			qs[i], qs[j] = qs[j], qs[i]
		})
	}

	timeLeft := -1
	if durationSeconds > 0 {
		timeLeft = durationSeconds
	}

	s := &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Ranked:      ranked,
		ChallengeID: challengeID,
		status:      StatusNotStarted,
		questions:   qs,
		answers:     make(map[int]int),
		timeLeft:    timeLeft,
		lastTouched: time.Now(),
	}

	if !ranked {
		s.status = StatusInProgress
		s.startedAt = time.Now()
	}

	return s
}

// Start moves a ranked session into progress. The client calls this after
// the user confirms fullscreen.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusInProgress:
		return ErrAlreadyStarted
	case StatusFinished:
		return ErrAlreadyFinished
	}

	s.status = StatusInProgress
	s.startedAt = time.Now()
	s.lastTouched = time.Now()
	utils.LogExam("Session %s started (ranked=%t, %d questions)", s.ID, s.Ranked, len(s.questions))
	return nil
}

// SelectAnswer records an option choice. A no-op error once the session is
// finished or disqualified.
func (s *Session) SelectAnswer(questionID, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return ErrNotInProgress
	}

	var question *models.Question
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			question = &s.questions[i]
			break
		}
	}
	if question == nil {
		return ErrUnknownQuestion
	}

	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return ErrInvalidOption
	}

	s.answers[questionID] = optionIndex
	s.lastTouched = time.Now()
	return nil
}

// Next advances the cursor, bounded at the last question.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusInProgress && s.current < len(s.questions)-1 {
		s.current++
	}
	return s.current
}

// Prev moves the cursor back, bounded at zero.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusInProgress && s.current > 0 {
		s.current--
	}
	return s.current
}

// ReportStrike counts one integrity violation. Ranked sessions only; the
// third strike force-finishes the session disqualified with a zero score.
// Returns the result when that happens, nil otherwise.
func (s *Session) ReportStrike(kind string) (*models.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Ranked {
		return nil, ErrNotRanked
	}
	if !strikeKinds[kind] {
		return nil, ErrUnknownStrike
	}
	if s.status != StatusInProgress {
		return nil, ErrNotInProgress
	}

	s.strikes++
	s.lastTouched = time.Now()
	utils.LogExam("Session %s strike %d/%d (%s)", s.ID, s.strikes, MaxStrikes, kind)

	if s.strikes >= MaxStrikes {
		s.disqualified = true
		result := s.finishLocked()
		utils.LogExam("Session %s disqualified after %d strikes", s.ID, s.strikes)
		return result, nil
	}

	return nil, nil
}

// Finish completes the session and computes the score.
func (s *Session) Finish() (*models.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return nil, ErrAlreadyFinished
	}
	if s.status != StatusInProgress {
		return nil, ErrNotInProgress
	}

	return s.finishLocked(), nil
}

func (s *Session) finishLocked() *models.ExamResult {
	s.status = StatusFinished
	s.finishedAt = time.Now()

	return &models.ExamResult{
		SessionID:    s.ID,
		UserID:       s.UserID,
		ChallengeID:  s.ChallengeID,
		Title:        s.Title,
		Ranked:       s.Ranked,
		Score:        s.scoreLocked(),
		Answered:     len(s.answers),
		Total:        len(s.questions),
		Disqualified: s.disqualified,
		Strikes:      s.strikes,
		FinishedAt:   s.finishedAt,
	}
}

// scoreLocked computes the integer percentage of awarded over possible
// points. Disqualification forces zero regardless of answers.
func (s *Session) scoreLocked() int {
	if s.disqualified {
		return 0
	}

	awarded, possible := 0, 0
	for _, q := range s.questions {
		points := q.Points
		if points == 0 {
			points = models.DefaultQuestionPoints
		}
		possible += points

		if selected, ok := s.answers[q.ID]; ok && selected == q.CorrectIdx {
			awarded += points
		}
	}

	if possible == 0 {
		return 0
	}
	return int(math.Round(float64(awarded) / float64(possible) * 100))
}

// tick decrements the countdown by one second. The timer is a cue, not an
// enforcement mechanism: at zero it stops and flags expiry once, the session
// keeps running. Returns true the moment the timer expires.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress || s.timeLeft < 0 || s.timeExpired {
		return false
	}

	if s.timeLeft > 0 {
		s.timeLeft--
	}
	if s.timeLeft == 0 {
		s.timeExpired = true
		utils.LogExam("Session %s time expired", s.ID)
		return true
	}
	return false
}

// View is the client-facing snapshot of a session. Correct answers and
// explanations stay server-side until the session is finished.
type View struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Status       Status            `json:"status"`
	Ranked       bool              `json:"ranked"`
	Current      int               `json:"current_index"`
	Questions    []QuestionView    `json:"questions"`
	Answers      map[int]int       `json:"answers"`
	Strikes      int               `json:"strikes"`
	Disqualified bool              `json:"disqualified"`
	TimeLeft     *int              `json:"time_left_seconds,omitempty"`
	TimeExpired  bool              `json:"time_expired"`
}

type QuestionView struct {
	ID        int      `json:"id"`
	Statement string   `json:"statement"`
	Options   []string `json:"options"`
	Topic     string   `json:"topic,omitempty"`
	Points    int      `json:"points"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]QuestionView, len(s.questions))
	for i, q := range s.questions {
		points := q.Points
		if points == 0 {
			points = models.DefaultQuestionPoints
		}
		questions[i] = QuestionView{
			ID:        q.ID,
			Statement: q.Statement,
			Options:   q.Options,
			Topic:     q.Topic,
			Points:    points,
		}
	}

	answers := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	view := View{
		ID:           s.ID,
		Title:        s.Title,
		Status:       s.status,
		Ranked:       s.Ranked,
		Current:      s.current,
		Questions:    questions,
		Answers:      answers,
		Strikes:      s.strikes,
		Disqualified: s.disqualified,
		TimeExpired:  s.timeExpired,
	}
	if s.timeLeft >= 0 {
		timeLeft := s.timeLeft
		view.TimeLeft = &timeLeft
	}
	return view
}

// QuestionIDs returns the identities in current order. Used to verify
// shuffles preserve the set.
func (s *Session) QuestionIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}
	return ids
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
