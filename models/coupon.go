package models

import "time"

// Coupon is a code redeemable once per user for a fixed credit grant.
type Coupon struct {
	ID         int       `json:"id"`
	Code       string    `json:"code"`
	Credits    int       `json:"credits"`
	UsageLimit *int      `json:"usage_limit,omitempty"` // nil means unlimited
	UsedCount  int       `json:"used_count"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type CouponUsage struct {
	ID       int       `json:"id"`
	CouponID int       `json:"coupon_id"`
	UserID   int       `json:"user_id"`
	UsedAt   time.Time `json:"used_at"`
}

type RedeemCouponRequest struct {
	Code string `json:"code"`
}

type RedeemCouponResponse struct {
	CreditsGranted int `json:"credits_granted"`
	CurrentCredits int `json:"current_credits"`
}
