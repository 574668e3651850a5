package db

import (
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

// IsPaymentProcessed reports whether a gateway payment id was already fully
// handled. Duplicate webhook deliveries short-circuit on this.
func (db *DB) IsPaymentProcessed(gatewayID string) (bool, error) {
	var exists int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM processed_payments WHERE gateway_id = ?
	`, gatewayID).Scan(&exists)
	if err != nil {
		utils.LogError("IsPaymentProcessed(%s) failed: %v", gatewayID, err)
		return false, err
	}
	return exists > 0, nil
}

// MarkPaymentProcessed records a gateway payment id once processing has
// succeeded. Returns true when this delivery was the first to mark it.
func (db *DB) MarkPaymentProcessed(gatewayID string) (bool, error) {
	result, err := db.Exec(`
		INSERT OR IGNORE INTO processed_payments (gateway_id) VALUES (?)
	`, gatewayID)
	if err != nil {
		utils.LogError("MarkPaymentProcessed(%s) failed: %v", gatewayID, err)
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (db *DB) InsertPayment(p *models.Payment) (int, error) {
	utils.LogDB("Recording payment %s for user %d: %.2f (%s)", p.GatewayID, p.UserID, p.Amount, p.Status)

	result, err := db.Exec(`
		INSERT OR IGNORE INTO payments (gateway_id, user_id, amount, status, recurring, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.GatewayID, p.UserID, p.Amount, p.Status, p.Recurring, time.Now())
	if err != nil {
		utils.LogError("InsertPayment failed: %v", err)
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (db *DB) GetUserPayments(userID int) ([]models.Payment, error) {
	utils.LogDB("Listing payments for user %d", userID)

	rows, err := db.Query(`
		SELECT id, gateway_id, user_id, amount, status, recurring, received_at
		FROM payments WHERE user_id = ? ORDER BY received_at DESC
	`, userID)
	if err != nil {
		utils.LogError("GetUserPayments(%d) failed: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.GatewayID, &p.UserID, &p.Amount, &p.Status, &p.Recurring, &p.ReceivedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func (db *DB) InsertUsageLog(userID int, kind string, cost int) error {
	_, err := db.Exec(`
		INSERT INTO usage_logs (user_id, kind, cost) VALUES (?, ?, ?)
	`, userID, kind, cost)
	if err != nil {
		utils.LogError("InsertUsageLog(%d, %s) failed: %v", userID, kind, err)
		return err
	}
	return nil
}
