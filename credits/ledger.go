// Package credits gates and accounts for consumption of the per-user credit
// quota tied to a subscription plan.
package credits

import (
	"time"

	"github.com/provafacil/ProvaFacilApi/db"
	"github.com/provafacil/ProvaFacilApi/models"
	"github.com/provafacil/ProvaFacilApi/utils"
)

type Ledger struct {
	db  *db.DB
	now func() time.Time
}

func NewLedger(database *db.DB) *Ledger {
	return &Ledger{db: database, now: time.Now}
}

// CheckAndResetCredits brings a profile up to date before any balance check.
// At most one of the two branches fires per call: an expired pro plan is
// downgraded to free with the free allowance, otherwise a last_reset older
// than one calendar month refills the plan's allowance. Admin profiles are
// never touched.
func (l *Ledger) CheckAndResetCredits(userID int) (*models.Profile, error) {
	profile, err := l.db.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if profile.IsAdmin() {
		return profile, nil
	}

	now := l.now()

	if profile.PlanType == models.PlanPro && profile.PlanEndDate != nil && now.After(*profile.PlanEndDate) {
		changed, err := l.db.DowngradeExpiredPlan(userID, now)
		if err != nil {
			return nil, err
		}
		if changed {
			utils.LogDB("User %d pro plan expired, downgraded to free", userID)
			return l.db.GetProfile(userID)
		}
		// Lost the race to another caller, fall through with a re-read
		return l.db.GetProfile(userID)
	}

	// Calendar-month staleness, not a flat 30*24h window
	if profile.LastReset.AddDate(0, 1, 0).Before(now) {
		changed, err := l.db.ResetMonthlyCredits(userID, profile.PlanType, now.AddDate(0, -1, 0), now)
		if err != nil {
			return nil, err
		}
		if changed {
			utils.LogDB("User %d monthly credits reset to %d (%s plan)",
				userID, models.CreditLimitFor(profile.PlanType), profile.PlanType)
		}
		return l.db.GetProfile(userID)
	}

	return profile, nil
}

// CheckCredits reports whether the user can afford cost. Admins are always
// allowed and shown an effectively unlimited balance.
func (l *Ledger) CheckCredits(userID, cost int) (models.CreditCheck, error) {
	profile, err := l.db.GetProfile(userID)
	if err != nil {
		return models.CreditCheck{}, err
	}

	if profile.IsAdmin() {
		return models.CreditCheck{
			Allowed:        true,
			Plan:           models.PlanAdmin,
			CurrentCredits: models.AdminDisplayCredits,
		}, nil
	}

	profile, err = l.CheckAndResetCredits(userID)
	if err != nil {
		return models.CreditCheck{}, err
	}

	return models.CreditCheck{
		Allowed:        profile.Credits >= cost,
		Plan:           profile.PlanType,
		CurrentCredits: profile.Credits,
	}, nil
}

// DeductCredits charges the user, flooring at zero. Admins are never charged.
func (l *Ledger) DeductCredits(userID, cost int) (int, error) {
	profile, err := l.db.GetProfile(userID)
	if err != nil {
		return 0, err
	}

	if profile.IsAdmin() {
		return models.AdminDisplayCredits, nil
	}

	return l.db.DeductCredits(userID, cost)
}

// GrantCredits adds to the balance (coupon redemptions, admin grants).
func (l *Ledger) GrantCredits(userID, amount int) (int, error) {
	return l.db.GrantCredits(userID, amount)
}

// Sweep is the scheduled complement to the on-demand reset: it downgrades
// every lapsed pro plan and refills every stale profile in bulk.
func (l *Ledger) Sweep() {
	now := l.now()

	expired, err := l.db.SweepExpiredPlans(now)
	if err != nil {
		utils.LogCron("Plan expiry sweep failed: %v", err)
	} else if expired > 0 {
		utils.LogCron("Downgraded %d expired pro plans", expired)
	}

	cutoff := now.AddDate(0, -1, 0)
	for _, plan := range []string{models.PlanFree, models.PlanPro} {
		reset, err := l.db.SweepStaleCredits(plan, cutoff, now)
		if err != nil {
			utils.LogCron("Credit reset sweep for %s plan failed: %v", plan, err)
			continue
		}
		if reset > 0 {
			utils.LogCron("Reset monthly credits for %d %s profiles", reset, plan)
		}
	}
}
