package sqlite

import (
	"context"

	"github.com/warp/settlement-engine/ledger"
)

// txStore is the ledger.Store handed to WithTx callbacks. Reads and writes
// both go through the open *sql.Tx so the callback sees its own writes.
type txStore struct {
	c conn
}

func (ts *txStore) GetUser(ctx context.Context, id ledger.UserID) (ledger.User, error) {
	return ts.c.getUser(ctx, id)
}

func (ts *txStore) GetWorkLog(ctx context.Context, id ledger.WorkLogID) (ledger.WorkLog, error) {
	return ts.c.getWorkLog(ctx, id)
}

func (ts *txStore) ListWorkLogs(ctx context.Context) ([]ledger.WorkLog, error) {
	return ts.c.listWorkLogs(ctx, "")
}

func (ts *txStore) ListWorkLogsByUser(ctx context.Context, userID ledger.UserID) ([]ledger.WorkLog, error) {
	return ts.c.listWorkLogs(ctx, userID)
}

func (ts *txStore) ListTimeSegments(ctx context.Context, id ledger.WorkLogID) ([]ledger.TimeSegment, error) {
	return ts.c.listTimeSegments(ctx, id)
}

func (ts *txStore) ListAdjustments(ctx context.Context, id ledger.WorkLogID) ([]ledger.Adjustment, error) {
	return ts.c.listAdjustments(ctx, id)
}

func (ts *txStore) ListRemittedItems(ctx context.Context, id ledger.WorkLogID) ([]ledger.RemittedItem, error) {
	return ts.c.listRemittedItems(ctx, id)
}

func (ts *txStore) GetRemittance(ctx context.Context, id ledger.RemittanceID) (ledger.Remittance, error) {
	return ts.c.getRemittance(ctx, id)
}

func (ts *txStore) ListRemittances(ctx context.Context) ([]ledger.Remittance, error) {
	return ts.c.listRemittances(ctx)
}

func (ts *txStore) ListRemittanceItems(ctx context.Context, id ledger.RemittanceID) ([]ledger.RemittanceItem, error) {
	return ts.c.listRemittanceItems(ctx, id)
}

func (ts *txStore) CreateUser(ctx context.Context, u ledger.User) error {
	return ts.c.createUser(ctx, u)
}

func (ts *txStore) DeleteUser(ctx context.Context, id ledger.UserID) error {
	return ts.c.deleteUser(ctx, id)
}

func (ts *txStore) CreateWorkLog(ctx context.Context, w ledger.WorkLog) error {
	return ts.c.createWorkLog(ctx, w)
}

func (ts *txStore) DeleteWorkLog(ctx context.Context, id ledger.WorkLogID) error {
	return ts.c.deleteWorkLog(ctx, id)
}

func (ts *txStore) AddTimeSegment(ctx context.Context, seg ledger.TimeSegment) error {
	return ts.c.addTimeSegment(ctx, seg)
}

func (ts *txStore) AddAdjustment(ctx context.Context, a ledger.Adjustment) error {
	return ts.c.addAdjustment(ctx, a)
}

func (ts *txStore) CreateRemittance(ctx context.Context, r ledger.Remittance) error {
	return ts.c.createRemittance(ctx, r)
}

func (ts *txStore) AddRemittanceItem(ctx context.Context, item ledger.RemittanceItem) error {
	return ts.c.addRemittanceItem(ctx, item)
}

func (ts *txStore) DeleteRemittance(ctx context.Context, id ledger.RemittanceID) error {
	return ts.c.deleteRemittance(ctx, id)
}
