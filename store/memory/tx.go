package memory

import (
	"context"

	"github.com/warp/settlement-engine/ledger"
)

// txMemoryView is the ledger.Store handed to WithTx callbacks. It runs
// against the live tables without locking; WithTx already holds the write
// lock and restores a snapshot if the callback fails.
type txMemoryView struct {
	t *tables
}

func (v *txMemoryView) GetUser(_ context.Context, id ledger.UserID) (ledger.User, error) {
	return v.t.getUser(id)
}

func (v *txMemoryView) GetWorkLog(_ context.Context, id ledger.WorkLogID) (ledger.WorkLog, error) {
	return v.t.getWorkLog(id)
}

func (v *txMemoryView) ListWorkLogs(_ context.Context) ([]ledger.WorkLog, error) {
	return v.t.listWorkLogs(""), nil
}

func (v *txMemoryView) ListWorkLogsByUser(_ context.Context, userID ledger.UserID) ([]ledger.WorkLog, error) {
	return v.t.listWorkLogs(userID), nil
}

func (v *txMemoryView) ListTimeSegments(_ context.Context, id ledger.WorkLogID) ([]ledger.TimeSegment, error) {
	return append([]ledger.TimeSegment(nil), v.t.segments[id]...), nil
}

func (v *txMemoryView) ListAdjustments(_ context.Context, id ledger.WorkLogID) ([]ledger.Adjustment, error) {
	return append([]ledger.Adjustment(nil), v.t.adjustments[id]...), nil
}

func (v *txMemoryView) ListRemittedItems(_ context.Context, id ledger.WorkLogID) ([]ledger.RemittedItem, error) {
	return v.t.listRemittedItems(id), nil
}

func (v *txMemoryView) GetRemittance(_ context.Context, id ledger.RemittanceID) (ledger.Remittance, error) {
	return v.t.getRemittance(id)
}

func (v *txMemoryView) ListRemittances(_ context.Context) ([]ledger.Remittance, error) {
	return v.t.listRemittances(), nil
}

func (v *txMemoryView) ListRemittanceItems(_ context.Context, id ledger.RemittanceID) ([]ledger.RemittanceItem, error) {
	return append([]ledger.RemittanceItem(nil), v.t.items[id]...), nil
}

func (v *txMemoryView) CreateUser(_ context.Context, u ledger.User) error {
	return v.t.createUser(u)
}

func (v *txMemoryView) DeleteUser(_ context.Context, id ledger.UserID) error {
	return v.t.deleteUser(id)
}

func (v *txMemoryView) CreateWorkLog(_ context.Context, w ledger.WorkLog) error {
	return v.t.createWorkLog(w)
}

func (v *txMemoryView) DeleteWorkLog(_ context.Context, id ledger.WorkLogID) error {
	return v.t.deleteWorkLog(id)
}

func (v *txMemoryView) AddTimeSegment(_ context.Context, s ledger.TimeSegment) error {
	return v.t.addTimeSegment(s)
}

func (v *txMemoryView) AddAdjustment(_ context.Context, a ledger.Adjustment) error {
	return v.t.addAdjustment(a)
}

func (v *txMemoryView) CreateRemittance(_ context.Context, r ledger.Remittance) error {
	return v.t.createRemittance(r)
}

func (v *txMemoryView) AddRemittanceItem(_ context.Context, item ledger.RemittanceItem) error {
	return v.t.addRemittanceItem(item)
}

func (v *txMemoryView) DeleteRemittance(_ context.Context, id ledger.RemittanceID) error {
	return v.t.deleteRemittance(id)
}
