package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/credits"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/exam"
	"github.com/provafacil/ProvaFacilApi/jobs"
	"github.com/provafacil/ProvaFacilApi/leaderboard"
	"github.com/provafacil/ProvaFacilApi/llm"
	"github.com/provafacil/ProvaFacilApi/payments"
	"github.com/provafacil/ProvaFacilApi/utils"
)

// timeNow is swappable in tests
var timeNow = time.Now

// API wrapper to hold all handlers
type API struct {
	authHandlers       *AuthHandlers
	creditsHandlers    *CreditsHandlers
	generationHandlers *GenerationHandlers
	examHandlers       *ExamHandlers
	paymentHandlers    *PaymentHandlers
	challengeHandlers  *ChallengeHandlers
	officialHandlers   *OfficialExamHandlers
	jobManager         *jobs.JobManager
}

type Deps struct {
	DB           *db.DB
	SessionStore *auth.SessionStore
	Ledger       *credits.Ledger
	LLMClient    *llm.Client
	Gateway      *payments.Client
	Boards       *leaderboard.Repository
	ExamSessions *exam.Store
	JobManager   *jobs.JobManager
}

func NewAPI(deps Deps) *API {
	return &API{
		authHandlers:       NewAuthHandlers(deps.DB, deps.SessionStore),
		creditsHandlers:    NewCreditsHandlers(deps.DB, deps.Ledger, deps.SessionStore),
		generationHandlers: NewGenerationHandlers(deps.DB, deps.Ledger, deps.LLMClient, deps.SessionStore, deps.JobManager),
		examHandlers:       NewExamHandlers(deps.DB, deps.ExamSessions, deps.SessionStore, deps.JobManager),
		paymentHandlers:    NewPaymentHandlers(deps.DB, deps.Gateway, deps.SessionStore, deps.JobManager),
		challengeHandlers:  NewChallengeHandlers(deps.DB, deps.Boards, deps.SessionStore),
		officialHandlers:   NewOfficialExamHandlers(deps.DB, deps.SessionStore),
		jobManager:         deps.JobManager,
	}
}

func NewRouter(deps Deps) http.Handler {
	api := NewAPI(deps)
	sessions := deps.SessionStore

	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("/health", healthCheck)

	// Auth endpoints (handle their own auth as needed)
	mux.HandleFunc("/auth/", api.authHandlers.HandleAuth)

	// Credits and coupons
	mux.HandleFunc("/credits", authMiddleware(api.creditsHandlers.GetBalance, sessions))
	mux.HandleFunc("/coupons/redeem", authMiddleware(api.creditsHandlers.RedeemCoupon, sessions))
	mux.HandleFunc("/coupons", adminMiddleware(api.creditsHandlers.CreateCoupon, sessions))

	// AI generation
	mux.HandleFunc("/generate/questions", authMiddleware(api.generationHandlers.GenerateQuestions, sessions))
	mux.HandleFunc("/generate/essay-feedback", authMiddleware(api.generationHandlers.GenerateEssayFeedback, sessions))

	// Exam sessions and results
	mux.HandleFunc("/exams", authMiddleware(api.examHandlers.HandleExams, sessions))
	mux.HandleFunc("/exams/", authMiddleware(api.examHandlers.HandleExams, sessions))
	mux.HandleFunc("/results", authMiddleware(api.examHandlers.GetResults, sessions))

	// Official exams: reads for everyone, uploads for admins
	mux.HandleFunc("/official-exams", authMiddleware(api.officialHandlers.HandleOfficialExams, sessions))
	mux.HandleFunc("/official-exams/", authMiddleware(api.officialHandlers.HandleOfficialExams, sessions))
	mux.HandleFunc("/official-exams/upload", adminMiddleware(api.officialHandlers.UploadExam, sessions))

	// Challenges, leaderboards and rewards
	mux.HandleFunc("/challenges", authMiddleware(api.challengeHandlers.HandleChallenges, sessions))
	mux.HandleFunc("/challenges/", authMiddleware(api.challengeHandlers.HandleChallenges, sessions))
	mux.HandleFunc("/challenges/create", adminMiddleware(api.challengeHandlers.CreateChallenge, sessions))
	mux.HandleFunc("/rewards", authMiddleware(api.challengeHandlers.HandleRewards, sessions))
	mux.HandleFunc("/rewards/", func(w http.ResponseWriter, r *http.Request) {
		// /rewards/{id}/status requires admin
		path := strings.TrimPrefix(r.URL.Path, "/rewards/")
		parts := strings.Split(path, "/")
		if len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost {
			if id, err := strconv.Atoi(parts[0]); err == nil {
				adminMiddleware(func(w http.ResponseWriter, r *http.Request) {
					api.challengeHandlers.UpdateRewardStatus(w, r, id)
				}, sessions)(w, r)
				return
			}
		}
		if len(parts) == 1 && parts[0] == "create" && r.Method == http.MethodPost {
			adminMiddleware(api.challengeHandlers.CreateReward, sessions)(w, r)
			return
		}
		writeError(w, http.StatusNotFound, "Not found")
	})

	// Billing
	mux.HandleFunc("/checkout", authMiddleware(api.paymentHandlers.Checkout, sessions))
	mux.HandleFunc("/payments", authMiddleware(api.paymentHandlers.GetPayments, sessions))

	// Gateway callbacks authenticate by payment lookup, not by session
	mux.HandleFunc("/webhook", api.paymentHandlers.Webhook)

	return corsMiddleware(loggingMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("Health check requested")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
