// Package model defines the finance records the analytics operate on and
// the records they derive.
package model

import (
	"math"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Kind distinguishes income from expense transactions.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is one of the known transaction kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Frequency is the cadence label assigned to a recurring pattern.
type Frequency string

const (
	FrequencyWeekly    Frequency = "Weekly"
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyIrregular Frequency = "Irregular"
)

// User is the owner of all other records.
type User struct {
	ID          string    `json:"id" firestore:"id"`
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

// Account is a bank or cash account a transaction is booked against.
type Account struct {
	ID     string `json:"id" firestore:"id"`
	UserID string `json:"user_id" firestore:"userId"`
	Name   string `json:"name" firestore:"name"`
	Type   string `json:"type" firestore:"type"`
}

// Transaction is a single dated monetary event.
type Transaction struct {
	ID          string    `json:"id" firestore:"id"`
	UserID      string    `json:"user_id" firestore:"userId"`
	AccountID   string    `json:"account_id,omitempty" firestore:"accountId"`
	Kind        Kind      `json:"kind" firestore:"kind"`
	Amount      float64   `json:"amount" firestore:"amount"`
	Category    string    `json:"category" firestore:"category"`
	Date        time.Time `json:"date" firestore:"date"`
	Description string    `json:"description,omitempty" firestore:"description"`
}

// Valid reports whether the record can take part in analytics. Corrupt
// records (no date, non-finite or negative amount, unknown kind) are skipped.
func (t *Transaction) Valid() bool {
	if t == nil || t.Date.IsZero() || !t.Kind.Valid() {
		return false
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount < 0 {
		return false
	}
	return true
}

// Day returns the transaction date truncated to a UTC calendar day.
func (t *Transaction) Day() time.Time {
	return Day(t.Date)
}

// Goal is a savings target.
type Goal struct {
	ID            string    `json:"id" firestore:"id"`
	UserID        string    `json:"user_id" firestore:"userId"`
	Title         string    `json:"title" firestore:"title"`
	TargetAmount  float64   `json:"target_amount" firestore:"targetAmount"`
	CurrentAmount float64   `json:"current_amount" firestore:"currentAmount"`
	TargetDate    time.Time `json:"target_date,omitempty" firestore:"targetDate"`
}

// Debt is an outstanding liability.
type Debt struct {
	ID              string    `json:"id" firestore:"id"`
	UserID          string    `json:"user_id" firestore:"userId"`
	Name            string    `json:"name" firestore:"name"`
	TotalAmount     float64   `json:"total_amount" firestore:"totalAmount"`
	RemainingAmount float64   `json:"remaining_amount" firestore:"remainingAmount"`
	InterestRate    float64   `json:"interest_rate" firestore:"interestRate"`
	MinimumPayment  float64   `json:"minimum_payment" firestore:"minimumPayment"`
	DueDate         time.Time `json:"due_date,omitempty" firestore:"dueDate"`
}

// Anomaly flags a single transaction as statistically unusual.
// There is at most one per (UserID, TransactionID).
type Anomaly struct {
	ID            string    `json:"id" firestore:"id"`
	UserID        string    `json:"user_id" firestore:"userId"`
	TransactionID string    `json:"transaction_id" firestore:"transactionId"`
	Score         float64   `json:"anomaly_score" firestore:"anomalyScore"`
	Reason        string    `json:"reason" firestore:"reason"`
	FlaggedAt     time.Time `json:"flagged_at" firestore:"flaggedAt"`
	Reviewed      bool      `json:"reviewed" firestore:"reviewed"`
}

// RecurringPattern is a (category, rounded amount) cluster recurring at a
// detectable cadence. There is at most one per (UserID, Category, PatternKey).
type RecurringPattern struct {
	ID              string    `json:"id" firestore:"id"`
	UserID          string    `json:"user_id" firestore:"userId"`
	Category        string    `json:"category" firestore:"category"`
	ApproxAmount    int64     `json:"approx_amount" firestore:"approxAmount"`
	PatternKey      string    `json:"pattern" firestore:"pattern"`
	Frequency       Frequency `json:"frequency" firestore:"frequency"`
	AverageAmount   float64   `json:"average_amount" firestore:"averageAmount"`
	OccurrenceCount int       `json:"occurrence_count" firestore:"occurrenceCount"`
	LastDetected    time.Time `json:"last_detected" firestore:"lastDetected"`
}

// GoalProjection is the derived completion estimate for a goal.
type GoalProjection struct {
	GoalID                  string  `json:"goal_id"`
	Title                   string  `json:"title"`
	TargetAmount            float64 `json:"target_amount"`
	CurrentAmount           float64 `json:"current_amount"`
	Remaining               float64 `json:"remaining"`
	MonthlyNetSaving        float64 `json:"monthly_net_saving"`
	MonthsOfHistoryUsed     int     `json:"months_window_used"`
	PredictedCompletionDate string  `json:"predicted_completion_date"`
}

// NotAvailable is reported in place of a date that cannot be projected.
const NotAvailable = "N/A"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
