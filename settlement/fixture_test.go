package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/store/memory"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// ledgerFixture seeds a memory store with deterministic timestamps.
type ledgerFixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Memory
	clock time.Time
}

func newFixture(t *testing.T) *ledgerFixture {
	return &ledgerFixture{t: t, ctx: context.Background(), store: memory.New(), clock: t0}
}

func (f *ledgerFixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *ledgerFixture) user(id ledger.UserID) {
	require.NoError(f.t, f.store.CreateUser(f.ctx, ledger.User{ID: id, Email: string(id) + "@example.com", CreatedAt: f.tick()}))
}

func (f *ledgerFixture) worklog(id ledger.WorkLogID, owner ledger.UserID) {
	require.NoError(f.t, f.store.CreateWorkLog(f.ctx, ledger.WorkLog{ID: id, UserID: owner, CreatedAt: f.tick()}))
}

func (f *ledgerFixture) segments(id ledger.WorkLogID, minutes ...int) {
	for _, m := range minutes {
		require.NoError(f.t, f.store.AddTimeSegment(f.ctx, ledger.TimeSegment{
			ID: ledger.TimeSegmentID(ledger.NewID()), WorkLogID: id, Minutes: m, CreatedAt: f.tick(),
		}))
	}
}

func (f *ledgerFixture) adjust(id ledger.WorkLogID, amounts ...string) {
	for _, a := range amounts {
		require.NoError(f.t, f.store.AddAdjustment(f.ctx, ledger.Adjustment{
			ID: ledger.AdjustmentID(ledger.NewID()), WorkLogID: id, Amount: dec(a), CreatedAt: f.tick(),
		}))
	}
}

// remit writes a remittance with one item paying id.
func (f *ledgerFixture) remit(owner ledger.UserID, id ledger.WorkLogID, status ledger.RemittanceStatus, amount string) ledger.RemittanceID {
	rid := ledger.RemittanceID(ledger.NewID())
	require.NoError(f.t, f.store.CreateRemittance(f.ctx, ledger.Remittance{
		ID: rid, UserID: owner, PeriodStart: t0, PeriodEnd: t0, Status: status, CreatedAt: f.tick(),
	}))
	require.NoError(f.t, f.store.AddRemittanceItem(f.ctx, ledger.RemittanceItem{
		ID: ledger.RemittanceItemID(ledger.NewID()), RemittanceID: rid, WorkLogID: id, Amount: dec(amount), CreatedAt: f.tick(),
	}))
	return rid
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
