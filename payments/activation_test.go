package payments

import (
	"net/url"
	"testing"
	"time"
)

func TestPlanEndFor(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		amount float64
		want   time.Time
	}{
		{"test amount buys one day", TestPlanPrice, now.Add(24 * time.Hour)},
		{"full price buys a month", ProPlanPrice, now.Add(30 * 24 * time.Hour)},
		{"float noise on the test amount", 1.0001, now.Add(24 * time.Hour)},
		{"arbitrary amount buys a month", 10.00, now.Add(30 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlanEndFor(tt.amount, now); !got.Equal(tt.want) {
				t.Errorf("PlanEndFor(%.4f) = %v, want %v", tt.amount, got, tt.want)
			}
		})
	}
}

func TestExtractPaymentID(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		wantID string
		wantOK bool
	}{
		{"legacy topic and id", "topic=payment&id=12345", "12345", true},
		{"typed notification", "type=payment&data.id=67890", "67890", true},
		{"merchant order is ignored", "topic=merchant_order&id=555", "", false},
		{"payment without id", "topic=payment", "", false},
		{"empty query", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("bad test query: %v", err)
			}

			id, ok := ExtractPaymentID(query)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("ExtractPaymentID(%q) = (%q, %t), want (%q, %t)",
					tt.query, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
