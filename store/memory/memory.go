// Package memory provides an in-memory ledger.TxStore for tests and
// throwaway runs.
package memory

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/warp/settlement-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	t  *tables
}

type tables struct {
	users       map[ledger.UserID]ledger.User
	worklogs    map[ledger.WorkLogID]ledger.WorkLog
	segments    map[ledger.WorkLogID][]ledger.TimeSegment
	adjustments map[ledger.WorkLogID][]ledger.Adjustment
	remittances map[ledger.RemittanceID]ledger.Remittance
	items       map[ledger.RemittanceID][]ledger.RemittanceItem
}

var (
	_ ledger.TxStore       = (*Memory)(nil)
	_ ledger.UserDirectory = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{t: newTables()}
}

func newTables() *tables {
	return &tables{
		users:       make(map[ledger.UserID]ledger.User),
		worklogs:    make(map[ledger.WorkLogID]ledger.WorkLog),
		segments:    make(map[ledger.WorkLogID][]ledger.TimeSegment),
		adjustments: make(map[ledger.WorkLogID][]ledger.Adjustment),
		remittances: make(map[ledger.RemittanceID]ledger.Remittance),
		items:       make(map[ledger.RemittanceID][]ledger.RemittanceItem),
	}
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (m *Memory) ListUserIDs(_ context.Context) ([]ledger.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.listUserIDs(), nil
}

func (m *Memory) GetUser(_ context.Context, id ledger.UserID) (ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.getUser(id)
}

func (m *Memory) GetWorkLog(_ context.Context, id ledger.WorkLogID) (ledger.WorkLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.getWorkLog(id)
}

func (m *Memory) ListWorkLogs(_ context.Context) ([]ledger.WorkLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.listWorkLogs(""), nil
}

func (m *Memory) ListWorkLogsByUser(_ context.Context, userID ledger.UserID) ([]ledger.WorkLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.listWorkLogs(userID), nil
}

func (m *Memory) ListTimeSegments(_ context.Context, id ledger.WorkLogID) ([]ledger.TimeSegment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.TimeSegment(nil), m.t.segments[id]...), nil
}

func (m *Memory) ListAdjustments(_ context.Context, id ledger.WorkLogID) ([]ledger.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Adjustment(nil), m.t.adjustments[id]...), nil
}

func (m *Memory) ListRemittedItems(_ context.Context, id ledger.WorkLogID) ([]ledger.RemittedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.listRemittedItems(id), nil
}

func (m *Memory) GetRemittance(_ context.Context, id ledger.RemittanceID) (ledger.Remittance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.getRemittance(id)
}

func (m *Memory) ListRemittances(_ context.Context) ([]ledger.Remittance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.listRemittances(), nil
}

func (m *Memory) ListRemittanceItems(_ context.Context, id ledger.RemittanceID) ([]ledger.RemittanceItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.RemittanceItem(nil), m.t.items[id]...), nil
}

func (m *Memory) CreateUser(_ context.Context, u ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.createUser(u)
}

func (m *Memory) DeleteUser(_ context.Context, id ledger.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.deleteUser(id)
}

func (m *Memory) CreateWorkLog(_ context.Context, w ledger.WorkLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.createWorkLog(w)
}

func (m *Memory) DeleteWorkLog(_ context.Context, id ledger.WorkLogID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.deleteWorkLog(id)
}

func (m *Memory) AddTimeSegment(_ context.Context, s ledger.TimeSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.addTimeSegment(s)
}

func (m *Memory) AddAdjustment(_ context.Context, a ledger.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.addAdjustment(a)
}

func (m *Memory) CreateRemittance(_ context.Context, r ledger.Remittance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.createRemittance(r)
}

func (m *Memory) AddRemittanceItem(_ context.Context, item ledger.RemittanceItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.addRemittanceItem(item)
}

func (m *Memory) DeleteRemittance(_ context.Context, id ledger.RemittanceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.deleteRemittance(id)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.t.clone()
	if err := fn(&txMemoryView{t: m.t}); err != nil {
		m.t = snapshot
		return err
	}
	return nil
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.worklogs {
		c.worklogs[k] = v
	}
	for k, v := range t.segments {
		c.segments[k] = append([]ledger.TimeSegment(nil), v...)
	}
	for k, v := range t.adjustments {
		c.adjustments[k] = append([]ledger.Adjustment(nil), v...)
	}
	for k, v := range t.remittances {
		c.remittances[k] = v
	}
	for k, v := range t.items {
		c.items[k] = append([]ledger.RemittanceItem(nil), v...)
	}
	return c
}

// =============================================================================
// TABLE OPERATIONS (caller holds the lock)
// =============================================================================

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func (t *tables) listUserIDs() []ledger.UserID {
	users := make([]ledger.User, 0, len(t.users))
	for _, u := range t.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	ids := make([]ledger.UserID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func (t *tables) getUser(id ledger.UserID) (ledger.User, error) {
	u, ok := t.users[id]
	if !ok {
		return ledger.User{}, ledger.ErrUserNotFound
	}
	return u, nil
}

func (t *tables) createUser(u ledger.User) error {
	u.CreatedAt = stamp(u.CreatedAt)
	t.users[u.ID] = u
	return nil
}

func (t *tables) deleteUser(id ledger.UserID) error {
	if _, ok := t.users[id]; !ok {
		return ledger.ErrUserNotFound
	}
	for rid, r := range t.remittances {
		if r.UserID == id {
			t.deleteRemittance(rid)
		}
	}
	for wid, w := range t.worklogs {
		if w.UserID == id {
			t.deleteWorkLog(wid)
		}
	}
	delete(t.users, id)
	return nil
}

func (t *tables) getWorkLog(id ledger.WorkLogID) (ledger.WorkLog, error) {
	w, ok := t.worklogs[id]
	if !ok {
		return ledger.WorkLog{}, ledger.ErrWorkLogNotFound
	}
	return w, nil
}

// listWorkLogs filters by owner unless userID is empty.
func (t *tables) listWorkLogs(userID ledger.UserID) []ledger.WorkLog {
	result := []ledger.WorkLog{}
	for _, w := range t.worklogs {
		if userID == "" || w.UserID == userID {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (t *tables) createWorkLog(w ledger.WorkLog) error {
	if _, ok := t.worklogs[w.ID]; ok {
		return ledger.ErrWorkLogExists
	}
	if _, ok := t.users[w.UserID]; !ok {
		return ledger.ErrUserNotFound
	}
	w.CreatedAt = stamp(w.CreatedAt)
	t.worklogs[w.ID] = w
	return nil
}

func (t *tables) deleteWorkLog(id ledger.WorkLogID) error {
	if _, ok := t.worklogs[id]; !ok {
		return ledger.ErrWorkLogNotFound
	}
	for rid, items := range t.items {
		kept := items[:0:0]
		for _, item := range items {
			if item.WorkLogID != id {
				kept = append(kept, item)
			}
		}
		t.items[rid] = kept
	}
	delete(t.segments, id)
	delete(t.adjustments, id)
	delete(t.worklogs, id)
	return nil
}

func (t *tables) addTimeSegment(s ledger.TimeSegment) error {
	if s.Minutes < 0 {
		return &ledger.ValidationError{Field: "minutes", Value: strconv.Itoa(s.Minutes), Reason: "must not be negative"}
	}
	if _, ok := t.worklogs[s.WorkLogID]; !ok {
		return ledger.ErrWorkLogNotFound
	}
	for _, segments := range t.segments {
		if slices.ContainsFunc(segments, func(x ledger.TimeSegment) bool { return x.ID == s.ID }) {
			return ledger.ErrSegmentExists
		}
	}
	s.CreatedAt = stamp(s.CreatedAt)
	t.segments[s.WorkLogID] = append(t.segments[s.WorkLogID], s)
	return nil
}

func (t *tables) addAdjustment(a ledger.Adjustment) error {
	if _, ok := t.worklogs[a.WorkLogID]; !ok {
		return ledger.ErrWorkLogNotFound
	}
	for _, adjustments := range t.adjustments {
		if slices.ContainsFunc(adjustments, func(x ledger.Adjustment) bool { return x.ID == a.ID }) {
			return ledger.ErrAdjustmentExists
		}
	}
	a.CreatedAt = stamp(a.CreatedAt)
	t.adjustments[a.WorkLogID] = append(t.adjustments[a.WorkLogID], a)
	return nil
}

func (t *tables) getRemittance(id ledger.RemittanceID) (ledger.Remittance, error) {
	r, ok := t.remittances[id]
	if !ok {
		return ledger.Remittance{}, ledger.ErrRemittanceNotFound
	}
	return r, nil
}

func (t *tables) listRemittances() []ledger.Remittance {
	result := make([]ledger.Remittance, 0, len(t.remittances))
	for _, r := range t.remittances {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (t *tables) createRemittance(r ledger.Remittance) error {
	if !r.Status.Valid() {
		_, err := ledger.ParseRemittanceStatus(string(r.Status))
		return err
	}
	if _, ok := t.remittances[r.ID]; ok {
		return ledger.ErrRemittanceExists
	}
	if _, ok := t.users[r.UserID]; !ok {
		return ledger.ErrUserNotFound
	}
	r.CreatedAt = stamp(r.CreatedAt)
	t.remittances[r.ID] = r
	return nil
}

func (t *tables) addRemittanceItem(item ledger.RemittanceItem) error {
	if _, ok := t.remittances[item.RemittanceID]; !ok {
		return ledger.ErrRemittanceNotFound
	}
	if _, ok := t.worklogs[item.WorkLogID]; !ok {
		return ledger.ErrWorkLogNotFound
	}
	for _, items := range t.items {
		if slices.ContainsFunc(items, func(x ledger.RemittanceItem) bool { return x.ID == item.ID }) {
			return ledger.ErrItemExists
		}
	}
	item.CreatedAt = stamp(item.CreatedAt)
	t.items[item.RemittanceID] = append(t.items[item.RemittanceID], item)
	return nil
}

func (t *tables) deleteRemittance(id ledger.RemittanceID) error {
	if _, ok := t.remittances[id]; !ok {
		return ledger.ErrRemittanceNotFound
	}
	delete(t.items, id)
	delete(t.remittances, id)
	return nil
}

func (t *tables) listRemittedItems(id ledger.WorkLogID) []ledger.RemittedItem {
	var result []ledger.RemittedItem
	for rid, items := range t.items {
		status := t.remittances[rid].Status
		for _, item := range items {
			if item.WorkLogID == id {
				result = append(result, ledger.RemittedItem{RemittanceItem: item, Status: status})
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
