package db

import (
	"testing"
	"time"

	"github.com/provafacil/ProvaFacilApi/models"
)

func TestMarkPaymentProcessedFirstDeliveryWins(t *testing.T) {
	database := newTestDB(t)

	first, err := database.MarkPaymentProcessed("pay-123")
	if err != nil {
		t.Fatalf("MarkPaymentProcessed failed: %v", err)
	}
	if !first {
		t.Error("first mark should report first delivery")
	}

	second, err := database.MarkPaymentProcessed("pay-123")
	if err != nil {
		t.Fatalf("duplicate MarkPaymentProcessed failed: %v", err)
	}
	if second {
		t.Error("duplicate mark should not report first delivery")
	}

	processed, err := database.IsPaymentProcessed("pay-123")
	if err != nil {
		t.Fatalf("IsPaymentProcessed failed: %v", err)
	}
	if !processed {
		t.Error("payment should be processed")
	}

	processed, err = database.IsPaymentProcessed("pay-999")
	if err != nil {
		t.Fatalf("IsPaymentProcessed failed: %v", err)
	}
	if processed {
		t.Error("unknown payment should not be processed")
	}
}

func TestInsertPaymentIgnoresDuplicateGatewayID(t *testing.T) {
	database := newTestDB(t)
	userID := insertTestUser(t, database, 0)

	payment := &models.Payment{
		GatewayID: "pay-777",
		UserID:    userID,
		Amount:    49.90,
		Status:    "approved",
	}

	if _, err := database.InsertPayment(payment); err != nil {
		t.Fatalf("InsertPayment failed: %v", err)
	}
	// A retried job re-inserting the same gateway payment is a no-op
	if _, err := database.InsertPayment(payment); err != nil {
		t.Fatalf("duplicate InsertPayment failed: %v", err)
	}

	list, err := database.GetUserPayments(userID)
	if err != nil {
		t.Fatalf("GetUserPayments failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d payment rows, want 1", len(list))
	}
}

func TestSaveExamResultIdempotent(t *testing.T) {
	database := newTestDB(t)
	userID := insertTestUser(t, database, 0)

	result := &models.ExamResult{
		SessionID:  "sess-abc",
		UserID:     userID,
		Title:      "Simulado",
		Score:      80,
		Answered:   8,
		Total:      10,
		FinishedAt: time.Now(),
	}

	firstID, err := database.SaveExamResult(result)
	if err != nil {
		t.Fatalf("SaveExamResult failed: %v", err)
	}

	secondID, err := database.SaveExamResult(result)
	if err != nil {
		t.Fatalf("retried SaveExamResult failed: %v", err)
	}
	if firstID != secondID {
		t.Errorf("retry returned id %d, want %d", secondID, firstID)
	}

	results, err := database.GetUserResults(userID, 10)
	if err != nil {
		t.Fatalf("GetUserResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d result rows, want 1", len(results))
	}
}
