/*
Package settlement computes what each work-log is owed and turns positive
balances into remittances.

KEY INSIGHT:
  Balances are never stored. Earned, remitted and payable amounts are
  recomputed from the ledger on every read, so a late adjustment can never
  leave a stale "paid" flag behind.

FORMULAS:
  earned   = Σ segment.minutes × 0.50 + Σ adjustment.amount
  remitted = Σ item.amount  (only items whose remittance is SUCCESS)
  payable  = max(0, earned − remitted)

  Adjustments may be negative and are summed as-is. Only payable is floored:
  an over-remitted work-log (manual correction, refund) shows 0, not a debt.

EXAMPLE:
  Segments [10, 20, 30] min, adjustments [+5.00, −2.00]
  earned   = 0.50 × 60 + 3.00 = 33.00
  items    [SUCCESS 10, FAILED 20, CANCELLED 5] → remitted = 10.00
  payable  = 23.00

SEE ALSO:
  - generator.go: Bulk remittance creation
  - worklogs.go:  Listing with derived REMITTED/UNREMITTED labels
*/
package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
)

// =============================================================================
// ACCOUNT - A work-log with everything needed to settle it
// =============================================================================

// Account is a loaded work-log aggregate. All methods are pure.
type Account struct {
	WorkLog     ledger.WorkLog
	Segments    []ledger.TimeSegment
	Adjustments []ledger.Adjustment
	Items       []ledger.RemittedItem
}

// Earned sums segment earnings and adjustments. Zero for an empty work-log.
func (a Account) Earned() decimal.Decimal {
	total := decimal.Zero
	for _, s := range a.Segments {
		total = total.Add(s.Earned())
	}
	for _, adj := range a.Adjustments {
		total = total.Add(adj.Amount)
	}
	return total
}

// Remitted sums items whose parent remittance is SUCCESS.
// FAILED and CANCELLED items are left out of the sum entirely.
func (a Account) Remitted() decimal.Decimal {
	total := decimal.Zero
	for _, item := range a.Items {
		if item.Settled() {
			total = total.Add(item.Amount)
		}
	}
	return total
}

// Payable is earned minus remitted, floored at zero.
func (a Account) Payable() decimal.Decimal {
	return decimal.Max(decimal.Zero, a.Earned().Sub(a.Remitted()))
}

// HasSuccessfulRemittance reports whether any item belongs to a SUCCESS remittance.
func (a Account) HasSuccessfulRemittance() bool {
	for _, item := range a.Items {
		if item.Settled() {
			return true
		}
	}
	return false
}

// Status derives the remittance label. A work-log is REMITTED only when
// nothing is payable and at least one successful payment exists.
func (a Account) Status() StatusLabel {
	if a.Payable().IsPositive() || !a.HasSuccessfulRemittance() {
		return StatusUnremitted
	}
	return StatusRemitted
}

// =============================================================================
// LOADING
// =============================================================================

// LoadAccount resolves id and loads its segments, adjustments and items.
// Returns ledger.ErrWorkLogNotFound if id does not resolve.
func LoadAccount(ctx context.Context, r ledger.Reader, id ledger.WorkLogID) (Account, error) {
	w, err := r.GetWorkLog(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return loadChildren(ctx, r, w)
}

func loadChildren(ctx context.Context, r ledger.Reader, w ledger.WorkLog) (Account, error) {
	segments, err := r.ListTimeSegments(ctx, w.ID)
	if err != nil {
		return Account{}, fmt.Errorf("loading segments of %s: %w", w.ID, err)
	}
	adjustments, err := r.ListAdjustments(ctx, w.ID)
	if err != nil {
		return Account{}, fmt.Errorf("loading adjustments of %s: %w", w.ID, err)
	}
	items, err := r.ListRemittedItems(ctx, w.ID)
	if err != nil {
		return Account{}, fmt.Errorf("loading remittance items of %s: %w", w.ID, err)
	}
	return Account{WorkLog: w, Segments: segments, Adjustments: adjustments, Items: items}, nil
}

// =============================================================================
// STORE-BACKED AGGREGATIONS
// =============================================================================

// TotalEarned loads id and returns what it has earned.
func TotalEarned(ctx context.Context, r ledger.Reader, id ledger.WorkLogID) (decimal.Decimal, error) {
	a, err := LoadAccount(ctx, r, id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Earned(), nil
}

// TotalRemitted loads id and returns the sum of its SUCCESS items.
func TotalRemitted(ctx context.Context, r ledger.Reader, id ledger.WorkLogID) (decimal.Decimal, error) {
	a, err := LoadAccount(ctx, r, id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Remitted(), nil
}

// PayableAmount returns max(0, TotalEarned − TotalRemitted).
func PayableAmount(ctx context.Context, r ledger.Reader, id ledger.WorkLogID) (decimal.Decimal, error) {
	a, err := LoadAccount(ctx, r, id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Payable(), nil
}
