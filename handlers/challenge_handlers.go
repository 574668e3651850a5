package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/leaderboard"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type ChallengeHandlers struct {
	db           *db.DB
	boards       *leaderboard.Repository
	sessionStore *auth.SessionStore
}

func NewChallengeHandlers(database *db.DB, boards *leaderboard.Repository,
	sessionStore *auth.SessionStore) *ChallengeHandlers {
	return &ChallengeHandlers{
		db:           database,
		boards:       boards,
		sessionStore: sessionStore,
	}
}

func (ch *ChallengeHandlers) HandleChallenges(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/challenges" {
		switch r.Method {
		case http.MethodGet:
			ch.listChallenges(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/challenges/")
	parts := strings.Split(path, "/")

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid challenge ID")
		return
	}

	if len(parts) == 2 && parts[1] == "leaderboard" && r.Method == http.MethodGet {
		ch.getLeaderboard(w, r, id)
		return
	}

	if len(parts) == 1 && r.Method == http.MethodGet {
		ch.getChallenge(w, id)
		return
	}

	writeError(w, http.StatusNotFound, "Not found")
}

func (ch *ChallengeHandlers) listChallenges(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	challenges, err := ch.db.ListChallenges(activeOnly, time.Now())
	if err != nil {
		utils.LogError("Failed to list challenges: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch challenges")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"challenges": challenges})
}

func (ch *ChallengeHandlers) getChallenge(w http.ResponseWriter, id int) {
	challenge, err := ch.db.GetChallenge(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Challenge not found")
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (ch *ChallengeHandlers) getLeaderboard(w http.ResponseWriter, r *http.Request, challengeID int) {
	session := getSessionFromContext(r.Context())

	entries, err := ch.boards.Top(r.Context(), challengeID, 50)
	if err != nil {
		utils.LogError("Failed to fetch leaderboard for challenge %d: %v", challengeID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
		return
	}

	mine, err := ch.boards.Rank(r.Context(), challengeID, session.Username)
	if err != nil {
		utils.LogError("Failed to fetch own rank for challenge %d: %v", challengeID, err)
		// The board itself is still worth returning
		mine = leaderboard.Entry{Username: session.Username}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"me":      mine,
	})
}

// CreateChallenge is admin-only.
func (ch *ChallengeHandlers) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.Challenge
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Title == "" || req.OfficialExamID == 0 || req.EndsAt.Before(req.StartsAt) {
		writeError(w, http.StatusBadRequest, "Title, exam and a valid time window are required")
		return
	}

	challenge, err := ch.db.CreateChallenge(&req)
	if err != nil {
		utils.LogError("Failed to create challenge: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create challenge")
		return
	}

	writeJSON(w, http.StatusCreated, challenge)
}

// HandleRewards routes /rewards (list own) and /rewards/{id}/status (admin).
func (ch *ChallengeHandlers) HandleRewards(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/rewards" {
		if r.Method == http.MethodGet {
			ch.listRewards(w, r)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeError(w, http.StatusNotFound, "Not found")
}

func (ch *ChallengeHandlers) listRewards(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())

	rewards, err := ch.db.ListUserRewards(session.UserID)
	if err != nil {
		utils.LogError("Failed to list rewards for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch rewards")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rewards": rewards})
}

// CreateReward is admin-only: grants a prize slot after a challenge closes.
func (ch *ChallengeHandlers) CreateReward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.Reward
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UserID == 0 || req.ChallengeID == 0 || req.Position <= 0 {
		writeError(w, http.StatusBadRequest, "User, challenge and position are required")
		return
	}

	reward, err := ch.db.CreateReward(&req)
	if err != nil {
		utils.LogError("Failed to create reward: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create reward")
		return
	}

	writeJSON(w, http.StatusCreated, reward)
}

// UpdateRewardStatus applies an admin transition on /rewards/{id}/status.
func (ch *ChallengeHandlers) UpdateRewardStatus(w http.ResponseWriter, r *http.Request, id int) {
	var req models.RewardStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	reward, err := ch.db.UpdateRewardStatus(id, req.Status)
	if err != nil {
		if err == db.ErrInvalidRewardTransition {
			writeError(w, http.StatusConflict, "Invalid reward status transition")
			return
		}
		utils.LogError("Failed to update reward %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update reward")
		return
	}

	writeJSON(w, http.StatusOK, reward)
}
