package exam

import (
	"errors"
	"sort"
	"testing"

	"github.com/provafacil/ProvaFacilApi/models"
)

func makeQuestions(n int) []models.Question {
	questions := make([]models.Question, n)
	for i := range questions {
		questions[i] = models.Question{
			ID:         i + 1,
			Statement:  "statement",
			Options:    []string{"a", "b", "c", "d", "e"},
			CorrectIdx: i % 5,
		}
	}
	return questions
}

func TestRankedShufflePreservesQuestionSet(t *testing.T) {
	questions := makeQuestions(20)
	session := NewSession(1, "Simulado", questions, true, nil, 0)

	ids := session.QuestionIDs()
	if len(ids) != len(questions) {
		t.Fatalf("got %d questions, want %d", len(ids), len(questions))
	}

	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	for i, id := range sorted {
		if id != i+1 {
			t.Fatalf("shuffled set differs from input: sorted[%d] = %d, want %d", i, id, i+1)
		}
	}

	// Shuffling must not leak into the caller's slice
	for i, q := range questions {
		if q.ID != i+1 {
			t.Fatalf("input slice was mutated at index %d", i)
		}
	}
}

func TestUnrankedSessionStartsImmediately(t *testing.T) {
	session := NewSession(1, "Treino", makeQuestions(3), false, nil, 0)

	if session.Status() != StatusInProgress {
		t.Errorf("status = %s, want %s", session.Status(), StatusInProgress)
	}

	// Order is preserved for unranked sessions
	for i, id := range session.QuestionIDs() {
		if id != i+1 {
			t.Errorf("question order changed: [%d] = %d", i, id)
		}
	}

	if err := session.SelectAnswer(1, 0); err != nil {
		t.Errorf("answer on auto-started session failed: %v", err)
	}
}

func TestRankedSessionRequiresExplicitStart(t *testing.T) {
	session := NewSession(1, "Desafio", makeQuestions(3), true, nil, 0)

	if err := session.SelectAnswer(1, 0); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("answer before start: err = %v, want ErrNotInProgress", err)
	}

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := session.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("double start: err = %v, want ErrAlreadyStarted", err)
	}

	if err := session.SelectAnswer(1, 0); err != nil {
		t.Errorf("answer after start failed: %v", err)
	}
}

func TestSelectAnswerValidation(t *testing.T) {
	session := NewSession(1, "Treino", makeQuestions(2), false, nil, 0)

	if err := session.SelectAnswer(99, 0); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("unknown question: err = %v, want ErrUnknownQuestion", err)
	}
	if err := session.SelectAnswer(1, 5); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("option out of range: err = %v, want ErrInvalidOption", err)
	}
	if err := session.SelectAnswer(1, -1); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("negative option: err = %v, want ErrInvalidOption", err)
	}
}

func TestScoring(t *testing.T) {
	tests := []struct {
		name      string
		questions []models.Question
		answers   map[int]int // question ID -> option
		wantScore int
	}{
		{
			"all correct scores 100",
			makeQuestions(4),
			map[int]int{1: 0, 2: 1, 3: 2, 4: 3},
			100,
		},
		{
			"nothing answered scores 0",
			makeQuestions(4),
			nil,
			0,
		},
		{
			"all wrong scores 0",
			makeQuestions(2),
			map[int]int{1: 4, 2: 4},
			0,
		},
		{
			"points weight the score",
			[]models.Question{
				{ID: 1, Options: []string{"a", "b", "c", "d", "e"}, CorrectIdx: 0, Points: 100},
				{ID: 2, Options: []string{"a", "b", "c", "d", "e"}, CorrectIdx: 0, Points: 100},
				{ID: 3, Options: []string{"a", "b", "c", "d", "e"}, CorrectIdx: 0, Points: 200},
			},
			map[int]int{3: 0},
			50,
		},
		{
			"rounded to nearest integer",
			makeQuestions(3),
			map[int]int{1: 0},
			33, // 1/3 of the points
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession(1, "Treino", tt.questions, false, nil, 0)
			for id, option := range tt.answers {
				if err := session.SelectAnswer(id, option); err != nil {
					t.Fatalf("SelectAnswer(%d, %d) failed: %v", id, option, err)
				}
			}

			result, err := session.Finish()
			if err != nil {
				t.Fatalf("Finish failed: %v", err)
			}
			if result.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", result.Score, tt.wantScore)
			}
			if result.Answered != len(tt.answers) {
				t.Errorf("answered = %d, want %d", result.Answered, len(tt.answers))
			}
		})
	}
}

func TestThreeStrikesDisqualifies(t *testing.T) {
	session := NewSession(7, "Desafio", makeQuestions(4), true, nil, 0)
	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Correct answers that would otherwise score 100
	for _, q := range makeQuestions(4) {
		if err := session.SelectAnswer(q.ID, q.CorrectIdx); err != nil {
			t.Fatalf("SelectAnswer failed: %v", err)
		}
	}

	for i := 0; i < MaxStrikes-1; i++ {
		result, err := session.ReportStrike("tab_switch")
		if err != nil {
			t.Fatalf("strike %d failed: %v", i+1, err)
		}
		if result != nil {
			t.Fatalf("strike %d should not finish the session", i+1)
		}
	}

	result, err := session.ReportStrike("fullscreen_exit")
	if err != nil {
		t.Fatalf("final strike failed: %v", err)
	}
	if result == nil {
		t.Fatal("third strike should return the final result")
	}
	if !result.Disqualified {
		t.Error("result should be disqualified")
	}
	if result.Score != 0 {
		t.Errorf("score = %d, want 0 despite correct answers", result.Score)
	}
	if result.Strikes != MaxStrikes {
		t.Errorf("strikes = %d, want %d", result.Strikes, MaxStrikes)
	}

	if err := session.SelectAnswer(1, 0); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("answer after disqualification: err = %v, want ErrNotInProgress", err)
	}
	if _, err := session.Finish(); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("finish after disqualification: err = %v, want ErrAlreadyFinished", err)
	}
}

func TestStrikeValidation(t *testing.T) {
	unranked := NewSession(1, "Treino", makeQuestions(2), false, nil, 0)
	if _, err := unranked.ReportStrike("tab_switch"); !errors.Is(err, ErrNotRanked) {
		t.Errorf("strike on unranked: err = %v, want ErrNotRanked", err)
	}

	ranked := NewSession(1, "Desafio", makeQuestions(2), true, nil, 0)
	if err := ranked.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := ranked.ReportStrike("looked_away"); !errors.Is(err, ErrUnknownStrike) {
		t.Errorf("unknown strike kind: err = %v, want ErrUnknownStrike", err)
	}
}

func TestNavigationBounds(t *testing.T) {
	session := NewSession(1, "Treino", makeQuestions(3), false, nil, 0)

	if idx := session.Prev(); idx != 0 {
		t.Errorf("Prev at start = %d, want 0", idx)
	}

	session.Next()
	session.Next()
	if idx := session.Next(); idx != 2 {
		t.Errorf("Next past end = %d, want 2", idx)
	}

	if idx := session.Prev(); idx != 1 {
		t.Errorf("Prev = %d, want 1", idx)
	}
}

func TestTimerExpiryDoesNotFinishSession(t *testing.T) {
	session := NewSession(1, "Treino", makeQuestions(2), false, nil, 2)

	if expired := session.tick(); expired {
		t.Error("first tick should not expire a 2s timer")
	}
	if expired := session.tick(); !expired {
		t.Error("second tick should report expiry")
	}
	if expired := session.tick(); expired {
		t.Error("expiry must be reported once")
	}

	// The countdown is a cue: answers and finishing keep working
	if session.Status() != StatusInProgress {
		t.Errorf("status = %s, want %s after expiry", session.Status(), StatusInProgress)
	}
	if err := session.SelectAnswer(1, 0); err != nil {
		t.Errorf("answer after expiry failed: %v", err)
	}
	if _, err := session.Finish(); err != nil {
		t.Errorf("finish after expiry failed: %v", err)
	}
}

func TestViewTimer(t *testing.T) {
	untimed := NewSession(1, "Treino", makeQuestions(1), false, nil, 0)
	if view := untimed.View(); view.TimeLeft != nil {
		t.Errorf("untimed view.TimeLeft = %v, want nil", *view.TimeLeft)
	}

	timed := NewSession(1, "Treino", makeQuestions(1), false, nil, 90)
	view := timed.View()
	if view.TimeLeft == nil || *view.TimeLeft != 90 {
		t.Errorf("timed view.TimeLeft = %v, want 90", view.TimeLeft)
	}
}
