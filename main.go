package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/provafacil/ProvaFacilApi/auth"
	"github.com/provafacil/ProvaFacilApi/credits"
	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/exam"
	"github.com/provafacil/ProvaFacilApi/handlers"
	"github.com/provafacil/ProvaFacilApi/jobs"
	"github.com/provafacil/ProvaFacilApi/leaderboard"
	"github.com/provafacil/ProvaFacilApi/llm"
	"github.com/provafacil/ProvaFacilApi/payments"
	"github.com/provafacil/ProvaFacilApi/utils"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	utils.LogStartup("ProvaFacil API starting...")

	if err := godotenv.Load(); err != nil {
		utils.LogInfo("No .env file found, using environment variables")
	}

	port := utils.GetEnvOrDefault("PORT", "8080")
	dbPath := utils.GetEnvOrDefault("DB_PATH", "./provafacil.db")
	redisURL := utils.GetEnvOrDefault("REDIS_URL", "redis://localhost:6379")
	utils.LogStartup("Config: port=%s db=%s redis=%s", port, dbPath, redisURL)

	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: strings.TrimPrefix(redisURL, "redis://"),
	})
	boards := leaderboard.NewRepository(redisClient)

	sessionStore := auth.NewSessionStore()
	examSessions := exam.NewStore()
	ledger := credits.NewLedger(database)
	llmClient := llm.NewClient(llm.LoadConfig())
	gateway := payments.NewClient(payments.LoadConfig())

	jobManager := jobs.NewJobManager(redisURL)
	jobManager.RegisterHandlers(database, gateway, boards)
	if err := jobManager.Start(); err != nil {
		log.Fatalf("[FATAL] Failed to start job queue: %v", err)
	}

	// Hourly sweep: expired pro plans and stale monthly credit windows
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", ledger.Sweep); err != nil {
		log.Fatalf("[FATAL] Failed to schedule credit sweep: %v", err)
	}
	scheduler.Start()

	router := handlers.NewRouter(handlers.Deps{
		DB:           database,
		SessionStore: sessionStore,
		Ledger:       ledger,
		LLMClient:    llmClient,
		Gateway:      gateway,
		Boards:       boards,
		ExamSessions: examSessions,
		JobManager:   jobManager,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // LLM calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		utils.LogShutdown("Received shutdown signal")

		scheduler.Stop()
		jobManager.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			utils.LogError("Server shutdown error: %v", err)
		}

		if err := redisClient.Close(); err != nil {
			utils.LogError("Error closing Redis connection: %v", err)
		}
		if err := database.Close(); err != nil {
			utils.LogError("Error closing database: %v", err)
		} else {
			utils.LogShutdown("Database connection closed")
		}
	}()

	utils.LogStartup("Server ready on port %s", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[FATAL] Server failed: %v", err)
	}
	utils.LogShutdown("Server stopped")
}
