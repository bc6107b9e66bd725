/*
Package ledger defines the settlement record hierarchy and the contracts the
storage layer must honor.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkLog: a user's open ledger; owns TimeSegments and Adjustments
  - TimeSegment: billable minutes, earning RatePerMinute each
  - Adjustment: signed manual correction to earnings
  - Remittance: a payment batch with a lifecycle status
  - RemittanceItem: one work-log's paid amount inside a Remittance

OWNERSHIP:
  WorkLog    ──owns──> TimeSegment, Adjustment
  Remittance ──owns──> RemittanceItem ──references──> WorkLog
  User       ──owns──> WorkLog, Remittance

  Deleting an owner deletes what it owns. Stores perform this explicitly,
  inside one transaction (see store.go).

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float64
  2. Type Safety: distinct ID types so a WorkLogID can't be passed as a UserID
  3. Derived state: balances and remittance labels are computed, not stored

SEE ALSO:
  - store.go: Reader/Writer/TxStore contracts
  - errors.go: Error kinds
  - settlement/calculator.go: Aggregations over these records
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RatePerMinute is the fixed earning rate of a TimeSegment.
var RatePerMinute = decimal.RequireFromString("0.50")

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type WorkLogID string
type TimeSegmentID string
type AdjustmentID string
type RemittanceID string
type RemittanceItemID string

// NewID returns a random identifier suitable for any record kind.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// RECORDS
// =============================================================================

type User struct {
	ID        UserID
	Email     string
	FullName  string
	CreatedAt time.Time
}

// WorkLog is the per-user ledger that time and adjustments accrue into.
type WorkLog struct {
	ID        WorkLogID
	UserID    UserID
	CreatedAt time.Time
}

// TimeSegment is a worked interval. Earned = Minutes × RatePerMinute.
type TimeSegment struct {
	ID        TimeSegmentID
	WorkLogID WorkLogID
	Minutes   int
	CreatedAt time.Time
}

// Earned returns the segment's contribution to a work-log's earnings.
func (s TimeSegment) Earned() decimal.Decimal {
	return decimal.NewFromInt(int64(s.Minutes)).Mul(RatePerMinute)
}

// Adjustment is a manual earning delta. Amount may be negative.
type Adjustment struct {
	ID        AdjustmentID
	WorkLogID WorkLogID
	Amount    decimal.Decimal
	Reason    string
	CreatedAt time.Time
}

// =============================================================================
// REMITTANCES
// =============================================================================

type RemittanceStatus string

const (
	RemittanceSuccess   RemittanceStatus = "SUCCESS"
	RemittanceFailed    RemittanceStatus = "FAILED"
	RemittanceCancelled RemittanceStatus = "CANCELLED"
)

// RemittanceStatuses lists every valid status, in display order.
var RemittanceStatuses = []RemittanceStatus{RemittanceSuccess, RemittanceFailed, RemittanceCancelled}

// Valid reports whether s is a known status.
func (s RemittanceStatus) Valid() bool {
	switch s {
	case RemittanceSuccess, RemittanceFailed, RemittanceCancelled:
		return true
	}
	return false
}

// ParseRemittanceStatus is exact and case-sensitive.
func ParseRemittanceStatus(s string) (RemittanceStatus, error) {
	status := RemittanceStatus(s)
	if !status.Valid() {
		accepted := make([]string, len(RemittanceStatuses))
		for i, st := range RemittanceStatuses {
			accepted[i] = string(st)
		}
		return "", &ValidationError{Field: "status", Value: s, Accepted: accepted}
	}
	return status, nil
}

// Remittance is a payment batch for one user.
// Only Status may change after creation.
type Remittance struct {
	ID          RemittanceID
	UserID      UserID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      RemittanceStatus
	CreatedAt   time.Time
}

// RemittanceItem records the amount a Remittance paid toward one WorkLog.
// Immutable once written.
type RemittanceItem struct {
	ID           RemittanceItemID
	RemittanceID RemittanceID
	WorkLogID    WorkLogID
	Amount       decimal.Decimal
	CreatedAt    time.Time
}

// RemittedItem is a RemittanceItem joined with its parent's current status.
// This is the shape the settlement calculator reads.
type RemittedItem struct {
	RemittanceItem
	Status RemittanceStatus
}

// Counts toward total remitted only when the parent succeeded.
func (i RemittedItem) Settled() bool {
	return i.Status == RemittanceSuccess
}
