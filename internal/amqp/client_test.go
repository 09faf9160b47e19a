package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"khata/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{63, 30 * time.Second}, // shift overflow still capped
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection closed", errors.New("connection closed"), true},
		{"channel closed", errors.New("message channel closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("permission denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestMessageValidation(t *testing.T) {
	date, _ := core.ParseDate("2024-05-02")
	tx := core.Transaction{
		ID:          "tx-1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 350000},
		Description: "Lunch",
		Category:    "Food",
		Date:        date,
	}

	upsert := NewUpsertMessage("uid-1", tx)
	body, err := upsert.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := MessageFromJSON(body)
	if err != nil {
		t.Fatalf("MessageFromJSON: %v", err)
	}
	if decoded.Op != OpUpsert || decoded.Transaction == nil || decoded.Transaction.Amount.Cents != 350000 {
		t.Fatalf("unexpected decoded message: %+v", decoded)
	}

	del := NewDeleteMessage("uid-1", "tx-1")
	body, err = del.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err = MessageFromJSON(body)
	if err != nil {
		t.Fatalf("MessageFromJSON: %v", err)
	}
	if decoded.Op != OpDelete || decoded.TransactionID != "tx-1" {
		t.Fatalf("unexpected decoded message: %+v", decoded)
	}
}

func TestMessageValidationRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"unknown op", `{"op":"replace","identity":"u","transactionId":"a"}`},
		{"upsert without payload", `{"op":"upsert","identity":"u","transactionId":"a"}`},
		{"delete without id", `{"op":"delete","identity":"u"}`},
		{"missing identity", `{"op":"delete","transactionId":"a"}`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MessageFromJSON([]byte(tt.body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
