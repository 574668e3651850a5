package db

import (
	"database/sql"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

func (db *DB) GetProfile(userID int) (*models.Profile, error) {
	utils.LogDB("Getting profile for user %d", userID)

	var p models.Profile
	err := db.QueryRow(`
		SELECT user_id, plan_type, credits, last_reset, plan_end_date, updated_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.PlanType, &p.Credits, &p.LastReset, &p.PlanEndDate, &p.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("Profile for user %d not found", userID)
		} else {
			utils.LogError("GetProfile(%d) failed: %v", userID, err)
		}
		return nil, err
	}

	return &p, nil
}

// DowngradeExpiredPlan moves a lapsed pro profile back to free with the free
// credit allowance. The plan_end_date guard keeps a concurrent call from
// downgrading twice.
func (db *DB) DowngradeExpiredPlan(userID int, now time.Time) (bool, error) {
	result, err := db.Exec(`
		UPDATE profiles
		SET plan_type = 'free', credits = ?, plan_end_date = NULL, last_reset = ?, updated_at = ?
		WHERE user_id = ? AND plan_type = 'pro' AND plan_end_date IS NOT NULL AND plan_end_date < ?
	`, models.CreditLimitFor(models.PlanFree), now, now, userID, now)
	if err != nil {
		utils.LogError("DowngradeExpiredPlan(%d) failed: %v", userID, err)
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ResetMonthlyCredits refills a profile to its plan limit and stamps
// last_reset. The staleness guard makes the reset idempotent across
// concurrent callers.
func (db *DB) ResetMonthlyCredits(userID int, plan string, cutoff, now time.Time) (bool, error) {
	result, err := db.Exec(`
		UPDATE profiles
		SET credits = ?, last_reset = ?, updated_at = ?
		WHERE user_id = ? AND plan_type = ? AND last_reset < ?
	`, models.CreditLimitFor(plan), now, now, userID, plan, cutoff)
	if err != nil {
		utils.LogError("ResetMonthlyCredits(%d) failed: %v", userID, err)
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeductCredits atomically subtracts cost from the balance, flooring at zero.
// The conditional update replaces the read-modify-write pattern so two
// concurrent deductions can never under-charge.
func (db *DB) DeductCredits(userID, cost int) (int, error) {
	start := time.Now()

	result, err := db.Exec(`
		UPDATE profiles SET credits = credits - ?, updated_at = ?
		WHERE user_id = ? AND credits >= ?
	`, cost, time.Now(), userID, cost)
	if err != nil {
		utils.LogError("DeductCredits(%d, %d) failed: %v", userID, cost, err)
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if rows == 0 {
		// Balance was below cost: floor to zero rather than going negative
		if _, err := db.Exec(`
			UPDATE profiles SET credits = 0, updated_at = ? WHERE user_id = ?
		`, time.Now(), userID); err != nil {
			utils.LogError("DeductCredits floor for user %d failed: %v", userID, err)
			return 0, err
		}
	}

	var remaining int
	if err := db.QueryRow(`SELECT credits FROM profiles WHERE user_id = ?`, userID).Scan(&remaining); err != nil {
		return 0, err
	}

	utils.LogDB("Deducted %d credits from user %d, %d remaining (%v)", cost, userID, remaining, time.Since(start))
	return remaining, nil
}

func (db *DB) GrantCredits(userID, amount int) (int, error) {
	_, err := db.Exec(`
		UPDATE profiles SET credits = credits + ?, updated_at = ? WHERE user_id = ?
	`, amount, time.Now(), userID)
	if err != nil {
		utils.LogError("GrantCredits(%d, %d) failed: %v", userID, amount, err)
		return 0, err
	}

	var balance int
	if err := db.QueryRow(`SELECT credits FROM profiles WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		return 0, err
	}

	utils.LogDB("Granted %d credits to user %d, balance now %d", amount, userID, balance)
	return balance, nil
}

// ActivateProPlan is called by payment processing: pro plan, full pro
// allowance, explicit end date.
func (db *DB) ActivateProPlan(userID int, planEnd time.Time) error {
	now := time.Now()
	_, err := db.Exec(`
		UPDATE profiles
		SET plan_type = 'pro', credits = ?, plan_end_date = ?, last_reset = ?, updated_at = ?
		WHERE user_id = ?
	`, models.CreditLimitFor(models.PlanPro), planEnd, now, now, userID)
	if err != nil {
		utils.LogError("ActivateProPlan(%d) failed: %v", userID, err)
		return err
	}

	utils.LogDB("Activated pro plan for user %d until %s", userID, planEnd.Format(time.RFC3339))
	return nil
}

// SweepExpiredPlans downgrades every lapsed pro profile in one statement.
// Used by the hourly maintenance job.
func (db *DB) SweepExpiredPlans(now time.Time) (int64, error) {
	result, err := db.Exec(`
		UPDATE profiles
		SET plan_type = 'free', credits = ?, plan_end_date = NULL, last_reset = ?, updated_at = ?
		WHERE plan_type = 'pro' AND plan_end_date IS NOT NULL AND plan_end_date < ?
	`, models.CreditLimitFor(models.PlanFree), now, now, now)
	if err != nil {
		utils.LogError("SweepExpiredPlans failed: %v", err)
		return 0, err
	}
	return result.RowsAffected()
}

// SweepStaleCredits refills every non-admin profile whose last_reset is older
// than the cutoff.
func (db *DB) SweepStaleCredits(plan string, cutoff, now time.Time) (int64, error) {
	result, err := db.Exec(`
		UPDATE profiles
		SET credits = ?, last_reset = ?, updated_at = ?
		WHERE plan_type = ? AND last_reset < ?
	`, models.CreditLimitFor(plan), now, now, plan, cutoff)
	if err != nil {
		utils.LogError("SweepStaleCredits(%s) failed: %v", plan, err)
		return 0, err
	}
	return result.RowsAffected()
}
