package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return newTestStore(t) })
}

func TestPersistsAcrossReopen(t *testing.T) {
	// GIVEN: a file-backed database with one work-log
	path := filepath.Join(t.TempDir(), "settlement.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, store.CreateWorkLog(ctx, ledger.WorkLog{ID: "w1", UserID: "u1"}))
	require.NoError(t, store.AddAdjustment(ctx, ledger.Adjustment{ID: "a1", WorkLogID: "w1", Amount: decimal.RequireFromString("0.01")}))
	require.NoError(t, store.Close())

	// WHEN: reopened (migration runs again)
	store, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// THEN
	adjustments, err := store.ListAdjustments(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "0.01", adjustments[0].Amount.String())
	assert.False(t, adjustments[0].CreatedAt.IsZero(), "missing timestamps are filled on write")
}

func TestCreateUserUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "u1", Email: "old@example.com"}))
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "u1", Email: "new@example.com", FullName: "New"}))

	u, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	ids, err := store.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestTimestampsSortChronologically(t *testing.T) {
	// Sub-second and whole-second timestamps must still order correctly as TEXT.
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "u1", CreatedAt: base}))
	require.NoError(t, store.CreateWorkLog(ctx, ledger.WorkLog{ID: "late", UserID: "u1", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, store.CreateWorkLog(ctx, ledger.WorkLog{ID: "early", UserID: "u1", CreatedAt: base.Add(500 * time.Millisecond)}))

	worklogs, err := store.ListWorkLogs(ctx)
	require.NoError(t, err)
	require.Len(t, worklogs, 2)
	assert.Equal(t, ledger.WorkLogID("early"), worklogs[0].ID)
	assert.True(t, worklogs[0].CreatedAt.Equal(base.Add(500*time.Millisecond)))
}

func TestCorruptTimestampIsStorageError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "u1"}))
	require.NoError(t, store.CreateWorkLog(ctx, ledger.WorkLog{ID: "w1", UserID: "u1"}))
	require.NoError(t, store.CreateRemittance(ctx, ledger.Remittance{ID: "r1", UserID: "u1", Status: ledger.RemittanceSuccess}))

	_, err := store.db.ExecContext(ctx, "UPDATE worklogs SET created_at = 'yesterday' WHERE id = 'w1'")
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, "UPDATE remittances SET period_start = '01/03/2026' WHERE id = 'r1'")
	require.NoError(t, err)

	_, err = store.GetWorkLog(ctx, "w1")
	assert.True(t, ledger.IsStorage(err), "got %v", err)
	_, err = store.ListWorkLogs(ctx)
	assert.True(t, ledger.IsStorage(err), "got %v", err)
	_, err = store.GetRemittance(ctx, "r1")
	assert.True(t, ledger.IsStorage(err), "got %v", err)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "u1"}))
	require.NoError(t, store.CreateWorkLog(ctx, ledger.WorkLog{ID: "w1", UserID: "u1"}))
	require.NoError(t, store.AddTimeSegment(ctx, ledger.TimeSegment{ID: "s1", WorkLogID: "w1", Minutes: 3}))

	require.NoError(t, store.Reset(ctx))

	ids, err := store.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	worklogs, err := store.ListWorkLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, worklogs)
}

func TestPingAndClosedStore(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.Close())

	_, err = store.ListWorkLogs(ctx)
	require.Error(t, err)
	assert.True(t, ledger.IsStorage(err))
	assert.False(t, ledger.IsNotFound(err))
}
