package payments

import (
	"math"
	"net/url"
	"time"
)

// PlanEndFor maps a paid amount to the plan expiry: the gateway test amount
// buys one day, anything else a full month (30 days).
func PlanEndFor(amount float64, now time.Time) time.Time {
	if math.Abs(amount-TestPlanPrice) < 0.001 {
		return now.Add(24 * time.Hour)
	}
	return now.Add(30 * 24 * time.Hour)
}

// ExtractPaymentID pulls the gateway payment id from webhook query
// parameters. Deliveries use either topic+id or type+data.id depending on
// the notification version.
func ExtractPaymentID(query url.Values) (string, bool) {
	topic := query.Get("topic")
	if topic == "" {
		topic = query.Get("type")
	}
	if topic != "payment" {
		return "", false
	}

	id := query.Get("id")
	if id == "" {
		id = query.Get("data.id")
	}
	if id == "" {
		return "", false
	}
	return id, true
}
