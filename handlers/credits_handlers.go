package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/credits"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type CreditsHandlers struct {
	db           *db.DB
	ledger       *credits.Ledger
	sessionStore *auth.SessionStore
}

func NewCreditsHandlers(database *db.DB, ledger *credits.Ledger, sessionStore *auth.SessionStore) *CreditsHandlers {
	return &CreditsHandlers{
		db:           database,
		ledger:       ledger,
		sessionStore: sessionStore,
	}
}

// GetBalance reports the caller's plan and up-to-date balance, applying any
// pending plan expiry or monthly reset first.
func (ch *CreditsHandlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	check, err := ch.ledger.CheckCredits(session.UserID, 0)
	if err != nil {
		utils.LogError("Failed to check credits for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch balance")
		return
	}

	writeJSON(w, http.StatusOK, check)
}

func (ch *CreditsHandlers) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	var req models.RedeemCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Coupon code is required")
		return
	}

	utils.LogHTTP("User %d redeeming coupon %s", session.UserID, req.Code)

	result, err := ch.db.RedeemCoupon(session.UserID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrCouponNotFound):
			writeError(w, http.StatusNotFound, "Coupon not found or inactive")
		case errors.Is(err, db.ErrCouponExhausted):
			writeError(w, http.StatusConflict, "Coupon usage limit reached")
		case errors.Is(err, db.ErrCouponAlreadyUsed):
			writeError(w, http.StatusConflict, "Coupon already redeemed")
		default:
			utils.LogError("Coupon redemption failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to redeem coupon")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CreateCoupon is an admin surface for minting new codes.
func (ch *CreditsHandlers) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Code       string `json:"code"`
		Credits    int    `json:"credits"`
		UsageLimit *int   `json:"usage_limit,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Code == "" || req.Credits <= 0 {
		writeError(w, http.StatusBadRequest, "Code and a positive credit amount are required")
		return
	}

	coupon, err := ch.db.CreateCoupon(req.Code, req.Credits, req.UsageLimit)
	if err != nil {
		utils.LogError("Failed to create coupon: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create coupon")
		return
	}

	writeJSON(w, http.StatusCreated, coupon)
}
