// Package storetest holds the behavior every ledger.TxStore must share.
// Each store package runs it from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
)

// Store is what the contract exercises.
type Store interface {
	ledger.TxStore
	ledger.UserDirectory
}

var base = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

// Run executes the contract against stores built by newStore.
// newStore is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("worklog ordering", func(t *testing.T) { testWorkLogOrdering(t, newStore(t)) })
	t.Run("children", func(t *testing.T) { testChildren(t, newStore(t)) })
	t.Run("remitted items carry status", func(t *testing.T) { testRemittedItems(t, newStore(t)) })
	t.Run("not found", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("validation", func(t *testing.T) { testValidation(t, newStore(t)) })
	t.Run("duplicate ids", func(t *testing.T) { testDuplicateIDs(t, newStore(t)) })
	t.Run("delete worklog cascades", func(t *testing.T) { testDeleteWorkLog(t, newStore(t)) })
	t.Run("delete remittance cascades", func(t *testing.T) { testDeleteRemittance(t, newStore(t)) })
	t.Run("delete user cascades", func(t *testing.T) { testDeleteUser(t, newStore(t)) })
	t.Run("tx commit", func(t *testing.T) { testTxCommit(t, newStore(t)) })
	t.Run("tx rollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
}

// =============================================================================
// SEEDING
// =============================================================================

type seeder struct {
	t   *testing.T
	ctx context.Context
	s   Store
}

func (sd seeder) user(id ledger.UserID, sec int) {
	require.NoError(sd.t, sd.s.CreateUser(sd.ctx, ledger.User{ID: id, Email: string(id) + "@example.com", FullName: "User " + string(id), CreatedAt: at(sec)}))
}

func (sd seeder) worklog(id ledger.WorkLogID, owner ledger.UserID, sec int) {
	require.NoError(sd.t, sd.s.CreateWorkLog(sd.ctx, ledger.WorkLog{ID: id, UserID: owner, CreatedAt: at(sec)}))
}

func (sd seeder) segment(id ledger.TimeSegmentID, w ledger.WorkLogID, minutes, sec int) {
	require.NoError(sd.t, sd.s.AddTimeSegment(sd.ctx, ledger.TimeSegment{ID: id, WorkLogID: w, Minutes: minutes, CreatedAt: at(sec)}))
}

func (sd seeder) adjustment(id ledger.AdjustmentID, w ledger.WorkLogID, amount string, sec int) {
	require.NoError(sd.t, sd.s.AddAdjustment(sd.ctx, ledger.Adjustment{ID: id, WorkLogID: w, Amount: decimal.RequireFromString(amount), Reason: "correction", CreatedAt: at(sec)}))
}

func (sd seeder) remittance(id ledger.RemittanceID, owner ledger.UserID, status ledger.RemittanceStatus, sec int) {
	require.NoError(sd.t, sd.s.CreateRemittance(sd.ctx, ledger.Remittance{
		ID: id, UserID: owner, Status: status, CreatedAt: at(sec),
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}))
}

func (sd seeder) item(id ledger.RemittanceItemID, r ledger.RemittanceID, w ledger.WorkLogID, amount string, sec int) {
	require.NoError(sd.t, sd.s.AddRemittanceItem(sd.ctx, ledger.RemittanceItem{ID: id, RemittanceID: r, WorkLogID: w, Amount: decimal.RequireFromString(amount), CreatedAt: at(sec)}))
}

// =============================================================================
// CASES
// =============================================================================

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u2", 2)
	sd.user("u1", 1)

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.UserID{"u1", "u2"}, ids)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", u.Email)
	assert.Equal(t, "User u1", u.FullName)
	assert.True(t, u.CreatedAt.Equal(at(1)))
}

func testWorkLogOrdering(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.user("u2", 0)
	sd.worklog("w-c", "u1", 3)
	sd.worklog("w-b", "u2", 1)
	sd.worklog("w-a", "u1", 1) // same instant as w-b, ID breaks the tie

	all, err := s.ListWorkLogs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ledger.WorkLogID("w-a"), all[0].ID)
	assert.Equal(t, ledger.WorkLogID("w-b"), all[1].ID)
	assert.Equal(t, ledger.WorkLogID("w-c"), all[2].ID)

	mine, err := s.ListWorkLogsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ledger.WorkLogID("w-a"), mine[0].ID)
	assert.Equal(t, ledger.WorkLogID("w-c"), mine[1].ID)

	none, err := s.ListWorkLogsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	w, err := s.GetWorkLog(ctx, "w-b")
	require.NoError(t, err)
	assert.Equal(t, ledger.UserID("u2"), w.UserID)
	assert.True(t, w.CreatedAt.Equal(at(1)))
}

func testChildren(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.worklog("w1", "u1", 1)
	sd.segment("s2", "w1", 20, 3)
	sd.segment("s1", "w1", 0, 2)
	sd.adjustment("a1", "w1", "-2.75", 4)
	sd.adjustment("a2", "w1", "10.125", 5)

	segments, err := s.ListTimeSegments(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, ledger.TimeSegmentID("s1"), segments[0].ID)
	assert.Equal(t, 0, segments[0].Minutes)
	assert.Equal(t, 20, segments[1].Minutes)

	adjustments, err := s.ListAdjustments(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, adjustments, 2)
	assert.Equal(t, "-2.75", adjustments[0].Amount.String())
	assert.Equal(t, "10.125", adjustments[1].Amount.String(), "precision survives storage")
	assert.Equal(t, "correction", adjustments[0].Reason)
}

func testRemittedItems(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.worklog("w1", "u1", 1)
	sd.worklog("w2", "u1", 2)
	sd.remittance("r1", "u1", ledger.RemittanceSuccess, 3)
	sd.remittance("r2", "u1", ledger.RemittanceFailed, 4)
	sd.item("i1", "r1", "w1", "10.00", 5)
	sd.item("i2", "r2", "w1", "20.00", 6)
	sd.item("i3", "r1", "w2", "1.50", 7)

	items, err := s.ListRemittedItems(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ledger.RemittanceItemID("i1"), items[0].ID)
	assert.Equal(t, ledger.RemittanceSuccess, items[0].Status)
	assert.Equal(t, ledger.RemittanceFailed, items[1].Status)
	assert.Equal(t, "20.00", items[1].Amount.StringFixed(2))

	r, err := s.GetRemittance(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), r.PeriodStart.UTC())
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), r.PeriodEnd.UTC())

	byRemittance, err := s.ListRemittanceItems(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, byRemittance, 2)
	assert.Equal(t, ledger.WorkLogID("w1"), byRemittance[0].WorkLogID)
	assert.Equal(t, ledger.WorkLogID("w2"), byRemittance[1].WorkLogID)

	all, err := s.ListRemittances(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ledger.RemittanceID("r1"), all[0].ID)
}

func testNotFound(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetUser(ctx, "x")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	_, err = s.GetWorkLog(ctx, "x")
	assert.ErrorIs(t, err, ledger.ErrWorkLogNotFound)
	_, err = s.GetRemittance(ctx, "x")
	assert.ErrorIs(t, err, ledger.ErrRemittanceNotFound)

	assert.ErrorIs(t, s.CreateWorkLog(ctx, ledger.WorkLog{ID: "w", UserID: "x"}), ledger.ErrUserNotFound)
	assert.ErrorIs(t, s.AddTimeSegment(ctx, ledger.TimeSegment{ID: "s", WorkLogID: "x", Minutes: 1}), ledger.ErrWorkLogNotFound)
	assert.ErrorIs(t, s.AddAdjustment(ctx, ledger.Adjustment{ID: "a", WorkLogID: "x", Amount: decimal.NewFromInt(1)}), ledger.ErrWorkLogNotFound)
	assert.ErrorIs(t, s.CreateRemittance(ctx, ledger.Remittance{ID: "r", UserID: "x", Status: ledger.RemittanceSuccess}), ledger.ErrUserNotFound)
	assert.ErrorIs(t, s.AddRemittanceItem(ctx, ledger.RemittanceItem{ID: "i", RemittanceID: "x", WorkLogID: "x", Amount: decimal.NewFromInt(1)}), ledger.ErrRemittanceNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, "x"), ledger.ErrUserNotFound)
	assert.ErrorIs(t, s.DeleteWorkLog(ctx, "x"), ledger.ErrWorkLogNotFound)
	assert.ErrorIs(t, s.DeleteRemittance(ctx, "x"), ledger.ErrRemittanceNotFound)
}

func testValidation(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.worklog("w1", "u1", 1)

	err := s.AddTimeSegment(ctx, ledger.TimeSegment{ID: "s", WorkLogID: "w1", Minutes: -5})
	assert.True(t, ledger.IsClientError(err), "negative minutes: %v", err)

	err = s.CreateRemittance(ctx, ledger.Remittance{ID: "r", UserID: "u1", Status: "PENDING"})
	assert.True(t, ledger.IsClientError(err), "unknown status: %v", err)

	segments, err := s.ListTimeSegments(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, segments)
}

// Reusing an ID never moves or replaces the existing record, even when the
// new one names a different parent.
func testDuplicateIDs(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.user("u2", 1)
	sd.worklog("w1", "u1", 2)
	sd.worklog("w2", "u2", 3)
	sd.segment("s1", "w1", 30, 4)
	sd.adjustment("a1", "w1", "2.00", 5)
	sd.remittance("r1", "u1", ledger.RemittanceSuccess, 6)
	sd.remittance("r2", "u2", ledger.RemittanceSuccess, 7)
	sd.item("i1", "r1", "w1", "5.00", 8)

	err := s.CreateWorkLog(ctx, ledger.WorkLog{ID: "w1", UserID: "u2", CreatedAt: at(9)})
	assert.ErrorIs(t, err, ledger.ErrWorkLogExists)
	assert.True(t, ledger.IsConflict(err))
	assert.False(t, ledger.IsStorage(err))

	assert.ErrorIs(t, s.AddTimeSegment(ctx, ledger.TimeSegment{ID: "s1", WorkLogID: "w2", Minutes: 10, CreatedAt: at(10)}), ledger.ErrSegmentExists)
	assert.ErrorIs(t, s.AddAdjustment(ctx, ledger.Adjustment{ID: "a1", WorkLogID: "w2", Amount: decimal.NewFromInt(1), CreatedAt: at(11)}), ledger.ErrAdjustmentExists)
	assert.ErrorIs(t, s.CreateRemittance(ctx, ledger.Remittance{ID: "r1", UserID: "u2", Status: ledger.RemittanceFailed, CreatedAt: at(12)}), ledger.ErrRemittanceExists)
	assert.ErrorIs(t, s.AddRemittanceItem(ctx, ledger.RemittanceItem{ID: "i1", RemittanceID: "r2", WorkLogID: "w2", Amount: decimal.NewFromInt(1), CreatedAt: at(13)}), ledger.ErrItemExists)

	w, err := s.GetWorkLog(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, ledger.UserID("u1"), w.UserID)

	r, err := s.GetRemittance(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, ledger.UserID("u1"), r.UserID)
	assert.Equal(t, ledger.RemittanceSuccess, r.Status)

	segments, err := s.ListTimeSegments(ctx, "w2")
	require.NoError(t, err)
	assert.Empty(t, segments)
	adjustments, err := s.ListAdjustments(ctx, "w2")
	require.NoError(t, err)
	assert.Empty(t, adjustments)
	items, err := s.ListRemittanceItems(ctx, "r2")
	require.NoError(t, err)
	assert.Empty(t, items)
	items, err = s.ListRemittanceItems(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func testDeleteWorkLog(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.worklog("w1", "u1", 1)
	sd.worklog("w2", "u1", 2)
	sd.segment("s1", "w1", 10, 3)
	sd.adjustment("a1", "w1", "1.00", 4)
	sd.remittance("r1", "u1", ledger.RemittanceSuccess, 5)
	sd.item("i1", "r1", "w1", "6.00", 6)
	sd.item("i2", "r1", "w2", "3.00", 7)

	require.NoError(t, s.DeleteWorkLog(ctx, "w1"))

	_, err := s.GetWorkLog(ctx, "w1")
	assert.ErrorIs(t, err, ledger.ErrWorkLogNotFound)
	segments, _ := s.ListTimeSegments(ctx, "w1")
	assert.Empty(t, segments)
	adjustments, _ := s.ListAdjustments(ctx, "w1")
	assert.Empty(t, adjustments)

	// The remittance survives with only the other work-log's item.
	items, err := s.ListRemittanceItems(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ledger.WorkLogID("w2"), items[0].WorkLogID)
}

func testDeleteRemittance(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.worklog("w1", "u1", 1)
	sd.remittance("r1", "u1", ledger.RemittanceSuccess, 2)
	sd.item("i1", "r1", "w1", "6.00", 3)

	require.NoError(t, s.DeleteRemittance(ctx, "r1"))

	items, err := s.ListRemittedItems(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = s.GetWorkLog(ctx, "w1")
	assert.NoError(t, err, "work-log is not owned by the remittance")
}

func testDeleteUser(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.user("u2", 0)
	sd.worklog("w1", "u1", 1)
	sd.worklog("w2", "u2", 2)
	sd.segment("s1", "w1", 10, 3)
	sd.remittance("r1", "u1", ledger.RemittanceSuccess, 4)
	sd.item("i1", "r1", "w1", "5.00", 5)
	sd.remittance("r2", "u2", ledger.RemittanceSuccess, 6)
	sd.item("i2", "r2", "w2", "5.00", 7)

	require.NoError(t, s.DeleteUser(ctx, "u1"))

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.UserID{"u2"}, ids)

	worklogs, err := s.ListWorkLogs(ctx)
	require.NoError(t, err)
	require.Len(t, worklogs, 1)
	assert.Equal(t, ledger.WorkLogID("w2"), worklogs[0].ID)

	remittances, err := s.ListRemittances(ctx)
	require.NoError(t, err)
	require.Len(t, remittances, 1)
	assert.Equal(t, ledger.RemittanceID("r2"), remittances[0].ID)

	segments, _ := s.ListTimeSegments(ctx, "w1")
	assert.Empty(t, segments)
	items, _ := s.ListRemittanceItems(ctx, "r2")
	assert.Len(t, items, 1)
}

func testTxCommit(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.worklog("w1", "u1", 1)

	err := s.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.CreateRemittance(ctx, ledger.Remittance{ID: "r1", UserID: "u1", Status: ledger.RemittanceSuccess, CreatedAt: at(2)}); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		if _, err := tx.GetRemittance(ctx, "r1"); err != nil {
			return err
		}
		return tx.AddRemittanceItem(ctx, ledger.RemittanceItem{ID: "i1", RemittanceID: "r1", WorkLogID: "w1", Amount: decimal.NewFromInt(4), CreatedAt: at(3)})
	})
	require.NoError(t, err)

	items, err := s.ListRemittedItems(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ledger.RemittanceSuccess, items[0].Status)
}

func testTxRollback(t *testing.T, s Store) {
	ctx := context.Background()
	sd := seeder{t, ctx, s}
	sd.user("u1", 0)
	sd.worklog("w1", "u1", 1)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.CreateRemittance(ctx, ledger.Remittance{ID: "r1", UserID: "u1", Status: ledger.RemittanceSuccess, CreatedAt: at(2)}); err != nil {
			return err
		}
		if err := tx.AddRemittanceItem(ctx, ledger.RemittanceItem{ID: "i1", RemittanceID: "r1", WorkLogID: "w1", Amount: decimal.NewFromInt(4), CreatedAt: at(3)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	remittances, err := s.ListRemittances(ctx)
	require.NoError(t, err)
	assert.Empty(t, remittances)
	items, err := s.ListRemittedItems(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
