package credits

import (
	"fmt"
	"testing"
	"time"

	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/models"
)

func newTestLedger(t *testing.T) (*Ledger, *db.DB) {
	t.Helper()

	database, err := db.InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewLedger(database), database
}

var userSeq int

func seedUser(t *testing.T, database *db.DB, plan string, credits int, lastReset time.Time, planEnd *time.Time) int {
	t.Helper()

	userSeq++
	name := fmt.Sprintf("user%d", userSeq)
	result, err := database.Exec(`
		INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)
	`, name, name+"@example.com", "x")
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read user id: %v", err)
	}

	_, err = database.Exec(`
		INSERT INTO profiles (user_id, plan_type, credits, last_reset, plan_end_date)
		VALUES (?, ?, ?, ?, ?)
	`, id, plan, credits, lastReset, planEnd)
	if err != nil {
		t.Fatalf("failed to insert profile: %v", err)
	}

	return int(id)
}

func TestCheckCreditsBoundary(t *testing.T) {
	tests := []struct {
		name    string
		credits int
		cost    int
		allowed bool
	}{
		{"exact balance is allowed", 5, 5, true},
		{"one short is denied", 5, 6, false},
		{"zero balance denies any cost", 0, 1, false},
		{"zero cost always passes", 0, 0, true},
		{"plenty left", 20, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, database := newTestLedger(t)
			userID := seedUser(t, database, models.PlanFree, tt.credits, time.Now(), nil)

			check, err := ledger.CheckCredits(userID, tt.cost)
			if err != nil {
				t.Fatalf("CheckCredits failed: %v", err)
			}
			if check.Allowed != tt.allowed {
				t.Errorf("Allowed = %t, want %t (credits=%d cost=%d)",
					check.Allowed, tt.allowed, tt.credits, tt.cost)
			}
			if check.CurrentCredits != tt.credits {
				t.Errorf("CurrentCredits = %d, want %d", check.CurrentCredits, tt.credits)
			}
		})
	}
}

func TestDeductCreditsFloorsAtZero(t *testing.T) {
	ledger, database := newTestLedger(t)
	userID := seedUser(t, database, models.PlanFree, 3, time.Now(), nil)

	remaining, err := ledger.DeductCredits(userID, 5)
	if err != nil {
		t.Fatalf("DeductCredits failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0 (balance below cost floors, never negative)", remaining)
	}

	profile, err := database.GetProfile(userID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Credits != 0 {
		t.Errorf("stored credits = %d, want 0", profile.Credits)
	}
}

func TestDeductCreditsExactBalance(t *testing.T) {
	ledger, database := newTestLedger(t)
	userID := seedUser(t, database, models.PlanFree, 5, time.Now(), nil)

	remaining, err := ledger.DeductCredits(userID, 5)
	if err != nil {
		t.Fatalf("DeductCredits failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestAdminNeverGatedOrCharged(t *testing.T) {
	ledger, database := newTestLedger(t)
	userID := seedUser(t, database, models.PlanAdmin, 0, time.Now().AddDate(0, -3, 0), nil)

	check, err := ledger.CheckCredits(userID, 1000)
	if err != nil {
		t.Fatalf("CheckCredits failed: %v", err)
	}
	if !check.Allowed {
		t.Error("admin should always be allowed")
	}
	if check.CurrentCredits != models.AdminDisplayCredits {
		t.Errorf("CurrentCredits = %d, want %d", check.CurrentCredits, models.AdminDisplayCredits)
	}

	remaining, err := ledger.DeductCredits(userID, 50)
	if err != nil {
		t.Fatalf("DeductCredits failed: %v", err)
	}
	if remaining != models.AdminDisplayCredits {
		t.Errorf("remaining = %d, want %d", remaining, models.AdminDisplayCredits)
	}

	// A stale admin profile is never touched by the reset machinery
	profile, err := database.GetProfile(userID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Credits != 0 || profile.PlanType != models.PlanAdmin {
		t.Errorf("admin profile was modified: plan=%s credits=%d", profile.PlanType, profile.Credits)
	}
}

func TestProExpiryDowngradesToFree(t *testing.T) {
	ledger, database := newTestLedger(t)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	planEnd := now.Add(-2 * time.Hour)
	userID := seedUser(t, database, models.PlanPro, 300, now.Add(-24*time.Hour), &planEnd)

	profile, err := ledger.CheckAndResetCredits(userID)
	if err != nil {
		t.Fatalf("CheckAndResetCredits failed: %v", err)
	}
	if profile.PlanType != models.PlanFree {
		t.Errorf("plan = %s, want %s", profile.PlanType, models.PlanFree)
	}
	if profile.Credits != models.CreditLimitFor(models.PlanFree) {
		t.Errorf("credits = %d, want free allowance %d", profile.Credits, models.CreditLimitFor(models.PlanFree))
	}
	if profile.PlanEndDate != nil {
		t.Errorf("plan_end_date = %v, want cleared", profile.PlanEndDate)
	}
}

func TestActiveProPlanUntouched(t *testing.T) {
	ledger, database := newTestLedger(t)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	planEnd := now.Add(10 * 24 * time.Hour)
	userID := seedUser(t, database, models.PlanPro, 123, now.Add(-24*time.Hour), &planEnd)

	profile, err := ledger.CheckAndResetCredits(userID)
	if err != nil {
		t.Fatalf("CheckAndResetCredits failed: %v", err)
	}
	if profile.PlanType != models.PlanPro || profile.Credits != 123 {
		t.Errorf("active pro profile changed: plan=%s credits=%d", profile.PlanType, profile.Credits)
	}
}

func TestMonthlyResetUsesCalendarMonth(t *testing.T) {
	tests := []struct {
		name        string
		lastResetAgo func(now time.Time) time.Time
		wantCredits int
	}{
		{
			"older than a calendar month refills",
			func(now time.Time) time.Time { return now.AddDate(0, -1, -2) },
			models.CreditLimitFor(models.PlanFree),
		},
		{
			"within the month keeps the balance",
			func(now time.Time) time.Time { return now.AddDate(0, 0, -20) },
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, database := newTestLedger(t)

			now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
			ledger.now = func() time.Time { return now }

			userID := seedUser(t, database, models.PlanFree, 2, tt.lastResetAgo(now), nil)

			profile, err := ledger.CheckAndResetCredits(userID)
			if err != nil {
				t.Fatalf("CheckAndResetCredits failed: %v", err)
			}
			if profile.Credits != tt.wantCredits {
				t.Errorf("credits = %d, want %d", profile.Credits, tt.wantCredits)
			}
		})
	}
}

func TestExpiredProGetsFreeAllowanceNotProRefill(t *testing.T) {
	ledger, database := newTestLedger(t)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	// Both conditions hold: the plan lapsed AND the reset window passed.
	// Only the downgrade branch may fire, with the free allowance.
	planEnd := now.AddDate(0, 0, -10)
	userID := seedUser(t, database, models.PlanPro, 5, now.AddDate(0, -2, 0), &planEnd)

	profile, err := ledger.CheckAndResetCredits(userID)
	if err != nil {
		t.Fatalf("CheckAndResetCredits failed: %v", err)
	}
	if profile.PlanType != models.PlanFree {
		t.Errorf("plan = %s, want %s", profile.PlanType, models.PlanFree)
	}
	if profile.Credits != models.CreditLimitFor(models.PlanFree) {
		t.Errorf("credits = %d, want %d (free allowance, not the pro refill)",
			profile.Credits, models.CreditLimitFor(models.PlanFree))
	}
}

func TestExhaustionThenMonthlyRenewal(t *testing.T) {
	ledger, database := newTestLedger(t)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	userID := seedUser(t, database, models.PlanFree, 1, now, nil)

	if _, err := ledger.DeductCredits(userID, 1); err != nil {
		t.Fatalf("DeductCredits failed: %v", err)
	}

	check, err := ledger.CheckCredits(userID, 1)
	if err != nil {
		t.Fatalf("CheckCredits failed: %v", err)
	}
	if check.Allowed {
		t.Fatal("exhausted balance should deny further spending")
	}

	// A month and a bit later the allowance renews
	now = now.AddDate(0, 1, 2)
	ledger.now = func() time.Time { return now }

	check, err = ledger.CheckCredits(userID, 1)
	if err != nil {
		t.Fatalf("CheckCredits after renewal failed: %v", err)
	}
	if !check.Allowed {
		t.Error("renewed allowance should allow spending again")
	}
	if check.CurrentCredits != models.CreditLimitFor(models.PlanFree) {
		t.Errorf("CurrentCredits = %d, want %d", check.CurrentCredits, models.CreditLimitFor(models.PlanFree))
	}
}

func TestSweepDowngradesAndRefills(t *testing.T) {
	ledger, database := newTestLedger(t)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	planEnd := now.AddDate(0, 0, -1)
	expiredPro := seedUser(t, database, models.PlanPro, 200, now.AddDate(0, 0, -5), &planEnd)
	staleFree := seedUser(t, database, models.PlanFree, 0, now.AddDate(0, -2, 0), nil)
	freshFree := seedUser(t, database, models.PlanFree, 7, now.AddDate(0, 0, -3), nil)

	ledger.Sweep()

	if p, _ := database.GetProfile(expiredPro); p.PlanType != models.PlanFree {
		t.Errorf("expired pro plan = %s, want %s", p.PlanType, models.PlanFree)
	}
	if p, _ := database.GetProfile(staleFree); p.Credits != models.CreditLimitFor(models.PlanFree) {
		t.Errorf("stale free credits = %d, want %d", p.Credits, models.CreditLimitFor(models.PlanFree))
	}
	if p, _ := database.GetProfile(freshFree); p.Credits != 7 {
		t.Errorf("fresh free credits = %d, want 7 (untouched)", p.Credits)
	}
}
