package models

import "time"

// Plan types. Admin bypasses credit accounting entirely.
const (
	PlanFree  = "free"
	PlanPro   = "pro"
	PlanAdmin = "admin"
)

// Monthly credit limits per plan. Unknown plans fall back to free.
var PlanCreditLimits = map[string]int{
	PlanFree: 20,
	PlanPro:  350,
}

// AdminDisplayCredits is what admins see as their balance. They are never
// actually charged.
const AdminDisplayCredits = 9999

func CreditLimitFor(plan string) int {
	if limit, ok := PlanCreditLimits[plan]; ok {
		return limit
	}
	return PlanCreditLimits[PlanFree]
}

// Profile holds a user's plan and credit balance. One row per user, created
// at signup.
type Profile struct {
	UserID      int        `json:"user_id"`
	PlanType    string     `json:"plan_type"`
	Credits     int        `json:"credits"`
	LastReset   time.Time  `json:"last_reset"`
	PlanEndDate *time.Time `json:"plan_end_date,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Profile) IsAdmin() bool {
	return p.PlanType == PlanAdmin
}

// CreditCheck is the result of gating an operation on the credit balance.
type CreditCheck struct {
	Allowed        bool   `json:"allowed"`
	Plan           string `json:"plan"`
	CurrentCredits int    `json:"current_credits"`
}
