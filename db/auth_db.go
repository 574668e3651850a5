package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

func (db *DB) CreateUser(req models.RegisterRequest) (*models.User, error) {
	utils.LogDB("Creating user: %s (%s)", req.Username, req.Email)
	start := time.Now()

	if err := utils.ValidateRegisterRequest(req.Username, req.Email, req.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.LogError("Failed to hash password: %v", err)
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO users (username, email, password_hash)
		VALUES (?, ?, ?)
	`, req.Username, req.Email, hashedPassword)
	if err != nil {
		utils.LogError("CreateUser failed: %v (%v)", err, time.Since(start))
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		utils.LogError("Failed to get LastInsertId for user: %v", err)
		return nil, err
	}

	// Every account starts on the free plan with a fresh credit allowance
	_, err = tx.Exec(`
		INSERT INTO profiles (user_id, plan_type, credits, last_reset)
		VALUES (?, 'free', ?, ?)
	`, id, models.CreditLimitFor(models.PlanFree), time.Now())
	if err != nil {
		utils.LogError("Failed to create profile for user %d: %v", id, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	utils.LogDB("User created with ID %d in %v", id, time.Since(start))
	return db.GetUserByID(int(id))
}

func (db *DB) GetUserByID(id int) (*models.User, error) {
	utils.LogDB("Getting user by ID: %d", id)

	var user models.User
	err := db.QueryRow(`
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("User ID %d not found", id)
		} else {
			utils.LogError("GetUserByID(%d) failed: %v", id, err)
		}
		return nil, err
	}

	return &user, nil
}

func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	utils.LogDB("Getting user by username: %s", username)

	var user models.User
	err := db.QueryRow(`
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users WHERE username = ?
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("User %s not found", username)
		} else {
			utils.LogError("GetUserByUsername(%s) failed: %v", username, err)
		}
		return nil, err
	}

	return &user, nil
}

func (db *DB) AuthenticateUser(username, password string) (*models.User, error) {
	utils.LogDB("Authenticating user: %s", username)

	var user models.User
	var passwordHash string
	err := db.QueryRow(`
		SELECT id, username, email, password_hash, role, is_active, created_at, updated_at
		FROM users WHERE username = ? OR email = ?
	`, username, username).Scan(&user.ID, &user.Username, &user.Email, &passwordHash,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("user not found")
	}

	if !user.IsActive {
		utils.LogDB("Rejected login for inactive user %s", username)
		return nil, fmt.Errorf("account is disabled")
	}

	if !utils.CheckPassword(passwordHash, password) {
		return nil, fmt.Errorf("invalid password")
	}

	return &user, nil
}
