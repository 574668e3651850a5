package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type AuthHandlers struct {
	db           *db.DB
	sessionStore *auth.SessionStore
}

func NewAuthHandlers(database *db.DB, sessionStore *auth.SessionStore) *AuthHandlers {
	return &AuthHandlers{
		db:           database,
		sessionStore: sessionStore,
	}
}

func (ah *AuthHandlers) HandleAuth(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/auth/")

	switch {
	case path == "register" && r.Method == http.MethodPost:
		ah.register(w, r)
	case path == "login" && r.Method == http.MethodPost:
		ah.login(w, r)
	case path == "logout" && r.Method == http.MethodPost:
		ah.logout(w, r)
	case path == "me" && r.Method == http.MethodGet:
		ah.getCurrentUserInfo(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (ah *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("POST /auth/register")

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in register request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := ah.db.CreateUser(req)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if strings.Contains(err.Error(), "username") {
				writeError(w, http.StatusConflict, "Username already exists")
			} else if strings.Contains(err.Error(), "email") {
				writeError(w, http.StatusConflict, "Email already exists")
			} else {
				writeError(w, http.StatusConflict, "User already exists")
			}
		} else if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "must be") {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			utils.LogError("Failed to create user: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	// Create session for immediate login
	session := ah.sessionStore.CreateSession(user)

	utils.LogHTTP("User registered successfully: %s (ID: %d)", user.Username, user.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    user,
		"session": session,
	})
}

func (ah *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("POST /auth/login")

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in login request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := ah.db.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		utils.LogHTTP("Login failed for user: %s", req.Username)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	session := ah.sessionStore.CreateSession(user)

	utils.LogHTTP("User logged in successfully: %s (ID: %d)", user.Username, user.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user,
		"session": session,
	})
}

func (ah *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("POST /auth/logout")

	sessionID := extractSessionFromRequest(r)
	if sessionID != "" {
		ah.sessionStore.DeleteSession(sessionID)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (ah *AuthHandlers) getCurrentUserInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := extractSessionFromRequest(r)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "Missing session token")
		return
	}

	session, exists := ah.sessionStore.GetSession(sessionID)
	if !exists {
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}

	user, err := ah.db.GetUserByID(session.UserID)
	if err != nil {
		utils.LogError("Failed to get user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	profile, err := ah.db.GetProfile(session.UserID)
	if err != nil {
		utils.LogError("Failed to get profile %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user,
		"profile": profile,
	})
}
