package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/leaderboard"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/payments"
	"github.com/provafacil/ProvaFacilApi/utils"
)

const (
	TypePersistExamResult = "exam:persist_result"
	TypeProcessPayment    = "payment:process"
	TypeLogUsage          = "usage:log"
)

// JobManager owns the asynq client and worker. Exam results and payment
// webhooks go through here so transient failures are retried instead of
// silently dropped.
type JobManager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

type PaymentPayload struct {
	GatewayPaymentID string `json:"gateway_payment_id"`
}

type UsagePayload struct {
	UserID int    `json:"user_id"`
	Kind   string `json:"kind"`
	Cost   int    `json:"cost"`
}

func NewJobManager(redisURL string) *JobManager {
	addr := strings.TrimPrefix(redisURL, "redis://")
	redisOpt := asynq.RedisClientOpt{
		Addr: addr,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6, // Exam results, payment activation
			"default":  3, // General work
			"low":      1, // Usage accounting
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			utils.LogError("Job failed: type=%s error=%v", task.Type(), err)
		}),
		Logger: &AsynqLogger{},
	})

	mux := asynq.NewServeMux()

	return &JobManager{
		client: client,
		server: server,
		mux:    mux,
	}
}

func (jm *JobManager) RegisterHandlers(database *db.DB, gateway *payments.Client, boards *leaderboard.Repository) {
	jm.mux.HandleFunc(TypePersistExamResult, jm.handlePersistExamResult(database, boards))
	jm.mux.HandleFunc(TypeProcessPayment, jm.handleProcessPayment(database, gateway))
	jm.mux.HandleFunc(TypeLogUsage, jm.handleLogUsage(database))
}

func (jm *JobManager) Start() error {
	utils.LogStartup("Starting job queue worker...")
	return jm.server.Start(jm.mux)
}

func (jm *JobManager) Stop() {
	utils.LogShutdown("Stopping job queue...")
	jm.server.Stop()
	jm.server.Shutdown()
	jm.client.Close()
}

// QueueExamResult enqueues a finished session for persistence. Critical
// queue with generous retries: losing a completed exam is not acceptable.
func (jm *JobManager) QueueExamResult(result *models.ExamResult) error {
	payloadBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal exam result payload: %w", err)
	}

	task := asynq.NewTask(TypePersistExamResult, payloadBytes)
	info, err := jm.client.Enqueue(task,
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
		asynq.Timeout(60*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue exam result task: %w", err)
	}

	utils.LogInfo("Queued exam result job: ID=%s session=%s user=%d score=%d",
		info.ID, result.SessionID, result.UserID, result.Score)
	return nil
}

// QueuePayment enqueues a webhook delivery for processing so the gateway
// gets its fast 200 while the real work retries independently.
func (jm *JobManager) QueuePayment(gatewayPaymentID string) error {
	payloadBytes, err := json.Marshal(PaymentPayload{GatewayPaymentID: gatewayPaymentID})
	if err != nil {
		return fmt.Errorf("failed to marshal payment payload: %w", err)
	}

	task := asynq.NewTask(TypeProcessPayment, payloadBytes)
	info, err := jm.client.Enqueue(task,
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
		asynq.Timeout(120*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue payment task: %w", err)
	}

	utils.LogInfo("Queued payment job: ID=%s payment=%s", info.ID, gatewayPaymentID)
	return nil
}

func (jm *JobManager) QueueUsageLog(userID int, kind string, cost int) error {
	payloadBytes, err := json.Marshal(UsagePayload{UserID: userID, Kind: kind, Cost: cost})
	if err != nil {
		return fmt.Errorf("failed to marshal usage payload: %w", err)
	}

	task := asynq.NewTask(TypeLogUsage, payloadBytes)
	if _, err := jm.client.Enqueue(task,
		asynq.Queue("low"),
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Second),
	); err != nil {
		return fmt.Errorf("failed to enqueue usage log task: %w", err)
	}
	return nil
}

func (jm *JobManager) handlePersistExamResult(database *db.DB, boards *leaderboard.Repository) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var result models.ExamResult
		if err := json.Unmarshal(task.Payload(), &result); err != nil {
			return fmt.Errorf("failed to unmarshal exam result payload: %w", err)
		}

		id, err := database.SaveExamResult(&result)
		if err != nil {
			return fmt.Errorf("failed to persist exam result for session %s: %w", result.SessionID, err)
		}

		// Ranked challenge runs feed the leaderboard. Disqualified runs still
		// post their forced zero.
		if result.Ranked && result.ChallengeID != nil && boards != nil {
			user, err := database.GetUserByID(result.UserID)
			if err != nil {
				return fmt.Errorf("failed to resolve user %d for leaderboard: %w", result.UserID, err)
			}
			if err := boards.SubmitScore(ctx, *result.ChallengeID, user.Username, result.Score); err != nil {
				return fmt.Errorf("failed to post score to challenge %d: %w", *result.ChallengeID, err)
			}
		}

		utils.LogInfo("Persisted exam result %d for session %s", id, result.SessionID)
		return nil
	}
}

func (jm *JobManager) handleProcessPayment(database *db.DB, gateway *payments.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload PaymentPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payment payload: %w", err)
		}

		// Dedup before anything else: a redelivered webhook must not
		// activate or log twice
		processed, err := database.IsPaymentProcessed(payload.GatewayPaymentID)
		if err != nil {
			return fmt.Errorf("failed to check payment dedup: %w", err)
		}
		if processed {
			utils.LogPay("Payment %s already processed, skipping", payload.GatewayPaymentID)
			return nil
		}

		payment, err := gateway.GetPayment(payload.GatewayPaymentID)
		if err != nil {
			return fmt.Errorf("failed to fetch payment %s: %w", payload.GatewayPaymentID, err)
		}

		userID, err := payment.UserID()
		if err != nil {
			return err
		}

		if payment.Approved() {
			planEnd := payments.PlanEndFor(payment.Amount, time.Now())
			if err := database.ActivateProPlan(userID, planEnd); err != nil {
				return fmt.Errorf("failed to activate pro plan for user %d: %w", userID, err)
			}
			utils.LogPay("Activated pro plan for user %d until %s (payment %s, %.2f)",
				userID, planEnd.Format(time.RFC3339), payment.ID, payment.Amount)
		} else {
			utils.LogPay("Payment %s has status %s, no activation", payment.ID, payment.Status)
		}

		if _, err := database.InsertPayment(&models.Payment{
			GatewayID: payment.ID,
			UserID:    userID,
			Amount:    payment.Amount,
			Status:    payment.Status,
		}); err != nil {
			return fmt.Errorf("failed to record payment %s: %w", payment.ID, err)
		}

		// Mark only after the whole delivery succeeded so a failed attempt
		// stays retryable
		if _, err := database.MarkPaymentProcessed(payload.GatewayPaymentID); err != nil {
			return fmt.Errorf("failed to mark payment %s processed: %w", payload.GatewayPaymentID, err)
		}

		return nil
	}
}

func (jm *JobManager) handleLogUsage(database *db.DB) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload UsagePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal usage payload: %w", err)
		}
		return database.InsertUsageLog(payload.UserID, payload.Kind, payload.Cost)
	}
}

// Custom logger that routes asynq output through the app's log helpers
type AsynqLogger struct{}

func (l *AsynqLogger) Debug(args ...interface{}) {
	utils.LogDebug(fmt.Sprint(args...))
}

func (l *AsynqLogger) Info(args ...interface{}) {
	utils.LogInfo(fmt.Sprint(args...))
}

func (l *AsynqLogger) Warn(args ...interface{}) {
	utils.LogError(fmt.Sprint(args...))
}

func (l *AsynqLogger) Error(args ...interface{}) {
	utils.LogError(fmt.Sprint(args...))
}

func (l *AsynqLogger) Fatal(args ...interface{}) {
	utils.LogError(fmt.Sprint(args...))
}
