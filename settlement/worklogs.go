package settlement

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
)

// =============================================================================
// STATUS LABEL - Derived, never persisted
// =============================================================================

// StatusLabel is a work-log's remittance state, recomputed on every read.
//
//	UNREMITTED --(payable reaches 0 via successful remittance)--> REMITTED
//	REMITTED   --(new segment/adjustment raises earned)---------> UNREMITTED
type StatusLabel string

const (
	StatusRemitted   StatusLabel = "REMITTED"
	StatusUnremitted StatusLabel = "UNREMITTED"
)

// ParseStatusLabel accepts exactly "REMITTED" or "UNREMITTED".
func ParseStatusLabel(s string) (StatusLabel, error) {
	switch label := StatusLabel(s); label {
	case StatusRemitted, StatusUnremitted:
		return label, nil
	}
	return "", &ledger.ValidationError{
		Field:    "remittanceStatus",
		Value:    s,
		Accepted: []string{string(StatusRemitted), string(StatusUnremitted)},
	}
}

// =============================================================================
// QUERY SERVICE
// =============================================================================

// ListOptions restricts a listing. A nil Status means no filter.
type ListOptions struct {
	Status *StatusLabel
}

// WorkLogEntry is one listed work-log with its computed balance.
type WorkLogEntry struct {
	WorkLogID ledger.WorkLogID
	UserID    ledger.UserID
	Earned    decimal.Decimal
	Remitted  decimal.Decimal
	Payable   decimal.Decimal
	Status    StatusLabel
}

func entryFor(a Account) WorkLogEntry {
	return WorkLogEntry{
		WorkLogID: a.WorkLog.ID,
		UserID:    a.WorkLog.UserID,
		Earned:    a.Earned(),
		Remitted:  a.Remitted(),
		Payable:   a.Payable(),
		Status:    a.Status(),
	}
}

// WorkLogQuery lists work-logs annotated with payable amounts.
type WorkLogQuery struct {
	Store ledger.Reader
}

func NewWorkLogQuery(store ledger.Reader) *WorkLogQuery {
	return &WorkLogQuery{Store: store}
}

// List returns every work-log in store order, filtered by opts.Status.
// An empty ledger yields an empty, non-nil slice.
func (q *WorkLogQuery) List(ctx context.Context, opts ListOptions) ([]WorkLogEntry, error) {
	worklogs, err := q.Store.ListWorkLogs(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]WorkLogEntry, 0, len(worklogs))
	for _, w := range worklogs {
		a, err := loadChildren(ctx, q.Store, w)
		if err != nil {
			return nil, err
		}
		entry := entryFor(a)
		if opts.Status != nil && *opts.Status != entry.Status {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Get returns a single work-log's entry or ledger.ErrWorkLogNotFound.
func (q *WorkLogQuery) Get(ctx context.Context, id ledger.WorkLogID) (WorkLogEntry, error) {
	a, err := LoadAccount(ctx, q.Store, id)
	if err != nil {
		return WorkLogEntry{}, err
	}
	return entryFor(a), nil
}
