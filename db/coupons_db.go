package db

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found or inactive")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
	ErrCouponAlreadyUsed = errors.New("coupon already redeemed by this user")
)

// RedeemCoupon applies a coupon to a user inside one transaction: validate
// the code, record the usage (unique per coupon+user), bump the counter and
// grant the credits. The unique index is the source of truth for
// once-per-user; the insert failure is translated, not pre-checked.
func (db *DB) RedeemCoupon(userID int, code string) (*models.RedeemCouponResponse, error) {
	utils.LogDB("Redeeming coupon %s for user %d", code, userID)
	start := time.Now()

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var coupon models.Coupon
	err = tx.QueryRow(`
		SELECT id, code, credits, usage_limit, used_count, active
		FROM coupons WHERE code = ? AND active = 1
	`, strings.TrimSpace(code)).Scan(&coupon.ID, &coupon.Code, &coupon.Credits,
		&coupon.UsageLimit, &coupon.UsedCount, &coupon.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCouponNotFound
		}
		utils.LogError("RedeemCoupon lookup failed: %v", err)
		return nil, err
	}

	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, ErrCouponExhausted
	}

	if _, err := tx.Exec(`
		INSERT INTO coupon_usages (coupon_id, user_id) VALUES (?, ?)
	`, coupon.ID, userID); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrCouponAlreadyUsed
		}
		utils.LogError("RedeemCoupon usage insert failed: %v", err)
		return nil, err
	}

	if _, err := tx.Exec(`
		UPDATE coupons SET used_count = used_count + 1 WHERE id = ?
	`, coupon.ID); err != nil {
		utils.LogError("RedeemCoupon counter update failed: %v", err)
		return nil, err
	}

	if _, err := tx.Exec(`
		UPDATE profiles SET credits = credits + ?, updated_at = ? WHERE user_id = ?
	`, coupon.Credits, time.Now(), userID); err != nil {
		utils.LogError("RedeemCoupon credit grant failed: %v", err)
		return nil, err
	}

	var balance int
	if err := tx.QueryRow(`SELECT credits FROM profiles WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		utils.LogError("RedeemCoupon balance read failed: %v", err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	utils.LogDB("Coupon %s redeemed by user %d: +%d credits, balance %d (%v)",
		coupon.Code, userID, coupon.Credits, balance, time.Since(start))

	return &models.RedeemCouponResponse{
		CreditsGranted: coupon.Credits,
		CurrentCredits: balance,
	}, nil
}

func (db *DB) CreateCoupon(code string, credits int, usageLimit *int) (*models.Coupon, error) {
	utils.LogDB("Creating coupon %s worth %d credits", code, credits)

	result, err := db.Exec(`
		INSERT INTO coupons (code, credits, usage_limit) VALUES (?, ?, ?)
	`, strings.TrimSpace(code), credits, usageLimit)
	if err != nil {
		utils.LogError("CreateCoupon failed: %v", err)
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	var coupon models.Coupon
	err = db.QueryRow(`
		SELECT id, code, credits, usage_limit, used_count, active, created_at
		FROM coupons WHERE id = ?
	`, id).Scan(&coupon.ID, &coupon.Code, &coupon.Credits, &coupon.UsageLimit,
		&coupon.UsedCount, &coupon.Active, &coupon.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &coupon, nil
}
