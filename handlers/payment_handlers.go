package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/jobs"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/payments"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type PaymentHandlers struct {
	db           *db.DB
	gateway      *payments.Client
	sessionStore *auth.SessionStore
	jobManager   *jobs.JobManager
}

func NewPaymentHandlers(database *db.DB, gateway *payments.Client, sessionStore *auth.SessionStore,
	jobManager *jobs.JobManager) *PaymentHandlers {
	return &PaymentHandlers{
		db:           database,
		gateway:      gateway,
		sessionStore: sessionStore,
		jobManager:   jobManager,
	}
}

// Checkout creates a gateway session and returns the redirect URL.
func (ph *PaymentHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	utils.LogPay("Creating checkout for user %d (recurring=%t)", session.UserID, req.Recurring)

	checkoutURL, err := ph.gateway.CreateCheckout(session.UserID, req.Recurring)
	if err != nil {
		utils.LogError("Checkout creation failed for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create checkout, try again later")
		return
	}

	writeJSON(w, http.StatusOK, models.CheckoutResponse{CheckoutURL: checkoutURL})
}

// Webhook receives gateway callbacks. The delivery is acknowledged
// immediately and processed by a retried background job; the payload itself
// is only trusted for the payment id.
func (ph *PaymentHandlers) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	paymentID, ok := payments.ExtractPaymentID(r.URL.Query())
	if !ok {
		// Non-payment topics (merchant orders etc.) are acknowledged and
		// ignored so the gateway stops redelivering them
		utils.LogPay("Ignoring webhook with topic=%s type=%s", r.URL.Query().Get("topic"), r.URL.Query().Get("type"))
		w.WriteHeader(http.StatusOK)
		return
	}

	utils.LogPay("Webhook received for payment %s", paymentID)

	if err := ph.jobManager.QueuePayment(paymentID); err != nil {
		utils.LogError("Failed to enqueue payment %s: %v", paymentID, err)
		// Non-200 makes the gateway retry the delivery later
		writeError(w, http.StatusInternalServerError, "Failed to queue payment")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetPayments lists the caller's payment history.
func (ph *PaymentHandlers) GetPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := getSessionFromContext(r.Context())

	list, err := ph.db.GetUserPayments(session.UserID)
	if err != nil {
		utils.LogError("Failed to fetch payments for user %d: %v", session.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch payments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": list})
}
