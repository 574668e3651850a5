package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

var testUserSeq int

func insertTestUser(t *testing.T, database *DB, credits int) int {
	t.Helper()

	testUserSeq++
	name := fmt.Sprintf("tester%d", testUserSeq)
	result, err := database.Exec(`
		INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)
	`, name, name+"@example.com", "x")
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	id, _ := result.LastInsertId()

	if _, err := database.Exec(`
		INSERT INTO profiles (user_id, plan_type, credits, last_reset) VALUES (?, 'free', ?, ?)
	`, id, credits, time.Now()); err != nil {
		t.Fatalf("failed to insert profile: %v", err)
	}
	return int(id)
}

func TestRedeemCouponGrantsCredits(t *testing.T) {
	database := newTestDB(t)
	userID := insertTestUser(t, database, 20)

	if _, err := database.CreateCoupon("BEMVINDO50", 50, nil); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	resp, err := database.RedeemCoupon(userID, "BEMVINDO50")
	if err != nil {
		t.Fatalf("RedeemCoupon failed: %v", err)
	}
	if resp.CreditsGranted != 50 {
		t.Errorf("CreditsGranted = %d, want 50", resp.CreditsGranted)
	}
	if resp.CurrentCredits != 70 {
		t.Errorf("CurrentCredits = %d, want 70", resp.CurrentCredits)
	}

	var usedCount int
	if err := database.QueryRow(`SELECT used_count FROM coupons WHERE code = ?`, "BEMVINDO50").Scan(&usedCount); err != nil {
		t.Fatalf("failed to read used_count: %v", err)
	}
	if usedCount != 1 {
		t.Errorf("used_count = %d, want 1", usedCount)
	}
}

func TestRedeemCouponOncePerUser(t *testing.T) {
	database := newTestDB(t)
	userID := insertTestUser(t, database, 0)

	if _, err := database.CreateCoupon("UNICO", 10, nil); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	if _, err := database.RedeemCoupon(userID, "UNICO"); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}

	_, err := database.RedeemCoupon(userID, "UNICO")
	if !errors.Is(err, ErrCouponAlreadyUsed) {
		t.Fatalf("second redemption: err = %v, want ErrCouponAlreadyUsed", err)
	}

	// The rejected attempt must not touch the balance or the counter
	profile, err := database.GetProfile(userID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Credits != 10 {
		t.Errorf("credits = %d, want 10 (granted exactly once)", profile.Credits)
	}

	var usedCount int
	if err := database.QueryRow(`SELECT used_count FROM coupons WHERE code = ?`, "UNICO").Scan(&usedCount); err != nil {
		t.Fatalf("failed to read used_count: %v", err)
	}
	if usedCount != 1 {
		t.Errorf("used_count = %d, want 1", usedCount)
	}
}

func TestRedeemCouponUnknownCode(t *testing.T) {
	database := newTestDB(t)
	userID := insertTestUser(t, database, 0)

	if _, err := database.RedeemCoupon(userID, "NADA"); !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("err = %v, want ErrCouponNotFound", err)
	}
}

func TestRedeemCouponUsageLimit(t *testing.T) {
	database := newTestDB(t)
	first := insertTestUser(t, database, 0)
	second := insertTestUser(t, database, 0)

	limit := 1
	if _, err := database.CreateCoupon("LIMITADO", 10, &limit); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	if _, err := database.RedeemCoupon(first, "LIMITADO"); err != nil {
		t.Fatalf("first user redemption failed: %v", err)
	}

	if _, err := database.RedeemCoupon(second, "LIMITADO"); !errors.Is(err, ErrCouponExhausted) {
		t.Errorf("err = %v, want ErrCouponExhausted", err)
	}
}

func TestRedeemCouponInactive(t *testing.T) {
	database := newTestDB(t)
	userID := insertTestUser(t, database, 0)

	if _, err := database.CreateCoupon("DESATIVADO", 10, nil); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}
	if _, err := database.Exec(`UPDATE coupons SET active = 0 WHERE code = ?`, "DESATIVADO"); err != nil {
		t.Fatalf("failed to deactivate coupon: %v", err)
	}

	if _, err := database.RedeemCoupon(userID, "DESATIVADO"); !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("err = %v, want ErrCouponNotFound", err)
	}
}

func TestUpdateRewardStatusTransitions(t *testing.T) {
	database := newTestDB(t)
	userID := insertTestUser(t, database, 0)

	reward, err := database.CreateReward(&models.Reward{
		UserID:      userID,
		ChallengeID: 1,
		Position:    1,
		PrizeAmount: 100,
	})
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}
	if reward.Status != models.RewardUnclaimed {
		t.Fatalf("new reward status = %s, want %s", reward.Status, models.RewardUnclaimed)
	}

	// Skipping a step is rejected
	if _, err := database.UpdateRewardStatus(reward.ID, models.RewardPaid); !errors.Is(err, ErrInvalidRewardTransition) {
		t.Errorf("unclaimed -> paid: err = %v, want ErrInvalidRewardTransition", err)
	}

	reward, err = database.UpdateRewardStatus(reward.ID, models.RewardPending)
	if err != nil {
		t.Fatalf("unclaimed -> pending failed: %v", err)
	}

	// Backwards moves are rejected
	if _, err := database.UpdateRewardStatus(reward.ID, models.RewardUnclaimed); !errors.Is(err, ErrInvalidRewardTransition) {
		t.Errorf("pending -> unclaimed: err = %v, want ErrInvalidRewardTransition", err)
	}

	reward, err = database.UpdateRewardStatus(reward.ID, models.RewardPaid)
	if err != nil {
		t.Fatalf("pending -> paid failed: %v", err)
	}
	if reward.Status != models.RewardPaid {
		t.Errorf("status = %s, want %s", reward.Status, models.RewardPaid)
	}

	// Paid is terminal
	if _, err := database.UpdateRewardStatus(reward.ID, models.RewardPending); !errors.Is(err, ErrInvalidRewardTransition) {
		t.Errorf("paid -> pending: err = %v, want ErrInvalidRewardTransition", err)
	}
}
