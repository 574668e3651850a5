package db

import (
	"database/sql"
	"fmt"

	"github.com/provafacil/ProvaFacilApi/utils"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func InitDB(dbPath string) (*DB, error) {
	utils.LogStartup("Initializing database at: %s", dbPath)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		utils.LogError("Failed to open database: %v", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		utils.LogError("Failed to ping database: %v", err)
		return nil, err
	}

	utils.LogStartup("Database connection established")

	if err := createTables(db); err != nil {
		utils.LogError("Failed to create tables: %v", err)
		return nil, err
	}

	utils.LogStartup("Database tables initialized successfully")
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One profile row per user: plan, credit balance, reset bookkeeping
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id INTEGER PRIMARY KEY,
			plan_type TEXT NOT NULL DEFAULT 'free' CHECK (plan_type IN ('free', 'pro', 'admin')),
			credits INTEGER NOT NULL DEFAULT 20 CHECK (credits >= 0),
			last_reset DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			plan_end_date DATETIME,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Generated questions kept for review/reuse
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			topic TEXT,
			statement TEXT NOT NULL,
			options TEXT NOT NULL, -- JSON array of 5 strings
			correct_index INTEGER NOT NULL,
			explanation TEXT, -- JSON, string or structured object
			difficulty TEXT NOT NULL DEFAULT 'medium',
			points INTEGER NOT NULL DEFAULT 100,
			created_by INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (created_by) REFERENCES users(id)
		)`,

		// Finished exam sessions
		`CREATE TABLE IF NOT EXISTS exam_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT UNIQUE NOT NULL,
			user_id INTEGER NOT NULL,
			challenge_id INTEGER,
			title TEXT NOT NULL,
			ranked BOOLEAN NOT NULL DEFAULT 0,
			score INTEGER NOT NULL,
			answered INTEGER NOT NULL,
			total INTEGER NOT NULL,
			disqualified BOOLEAN NOT NULL DEFAULT 0,
			strikes INTEGER NOT NULL DEFAULT 0,
			finished_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (challenge_id) REFERENCES challenges(id)
		)`,

		// Coupons and their redemptions
		`CREATE TABLE IF NOT EXISTS coupons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT UNIQUE NOT NULL,
			credits INTEGER NOT NULL,
			usage_limit INTEGER,
			used_count INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// At most one redemption per user per coupon, enforced here
		`CREATE TABLE IF NOT EXISTS coupon_usages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			coupon_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			used_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (coupon_id, user_id),
			FOREIGN KEY (coupon_id) REFERENCES coupons(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,

		// Gateway payment log
		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gateway_id TEXT UNIQUE NOT NULL,
			user_id INTEGER NOT NULL,
			amount REAL NOT NULL,
			status TEXT NOT NULL,
			recurring BOOLEAN NOT NULL DEFAULT 0,
			received_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,

		// Webhook dedup: one row per gateway payment id we ever handled
		`CREATE TABLE IF NOT EXISTS processed_payments (
			gateway_id TEXT PRIMARY KEY,
			processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Admin-uploaded past exams
		`CREATE TABLE IF NOT EXISTS official_exams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			year INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			questions TEXT NOT NULL, -- JSON array
			created_by INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (created_by) REFERENCES users(id)
		)`,

		// Prize-eligible competitions
		`CREATE TABLE IF NOT EXISTS challenges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			official_exam_id INTEGER NOT NULL,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			prize_pool REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (official_exam_id) REFERENCES official_exams(id)
		)`,

		`CREATE TABLE IF NOT EXISTS rewards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			challenge_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			prize_amount REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'unclaimed' CHECK (status IN ('unclaimed', 'pending', 'paid')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (challenge_id) REFERENCES challenges(id)
		)`,

		// AI usage accounting, written by a background job
		`CREATE TABLE IF NOT EXISTS usage_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			cost INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	}

	for i, query := range queries {
		utils.LogDB("Creating table %d/%d", i+1, len(queries))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes for performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_exam_results_user_id ON exam_results(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_exam_results_challenge_id ON exam_results(challenge_id)",
		"CREATE INDEX IF NOT EXISTS idx_coupon_usages_user_id ON coupon_usages(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_usage_logs_user_id ON usage_logs(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_rewards_user_id ON rewards(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_questions_subject ON questions(subject)",
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			utils.LogDB("Failed to create index (non-fatal): %v", err)
		}
	}

	return nil
}
