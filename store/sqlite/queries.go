package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
)

// Fixed width so lexical order in SQL matches chronological order.
const (
	timeLayout = "2006-01-02T15:04:05.000000000Z"
	dateLayout = "2006-01-02"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn holds the unlocked query implementations shared by Store and txStore.
type conn struct {
	q querier
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, ledger.Storage("parse time", err)
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, ledger.Storage("parse date", err)
	}
	return t, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ledger.Storage("parse amount", err)
	}
	return d, nil
}

func (c conn) exists(ctx context.Context, table, id string) (bool, error) {
	var n int
	err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, ledger.Storage("lookup "+table, err)
	}
	return n > 0, nil
}

// =============================================================================
// USERS
// =============================================================================

func (c conn) listUserIDs(ctx context.Context) ([]ledger.UserID, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT id FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, ledger.Storage("list users", err)
	}
	defer rows.Close()

	var ids []ledger.UserID
	for rows.Next() {
		var id ledger.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, ledger.Storage("scan user", err)
		}
		ids = append(ids, id)
	}
	return ids, ledger.Storage("list users", rows.Err())
}

func (c conn) getUser(ctx context.Context, id ledger.UserID) (ledger.User, error) {
	var (
		u         ledger.User
		createdAt string
	)
	err := c.q.QueryRowContext(ctx,
		"SELECT id, email, full_name, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Email, &u.FullName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.User{}, ledger.ErrUserNotFound
	}
	if err != nil {
		return ledger.User{}, ledger.Storage("get user", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return ledger.User{}, err
	}
	return u, nil
}

func (c conn) createUser(ctx context.Context, u ledger.User) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name
	`, u.ID, u.Email, u.FullName, formatTime(u.CreatedAt))
	return ledger.Storage("create user", err)
}

// deleteUser removes the user's remittances and work-logs, each with its own
// children, before the user row.
func (c conn) deleteUser(ctx context.Context, id ledger.UserID) error {
	ok, err := c.exists(ctx, "users", string(id))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrUserNotFound
	}

	stmts := []string{
		`DELETE FROM remittance_items WHERE remittance_id IN (SELECT id FROM remittances WHERE user_id = ?)`,
		`DELETE FROM remittance_items WHERE worklog_id IN (SELECT id FROM worklogs WHERE user_id = ?)`,
		`DELETE FROM remittances WHERE user_id = ?`,
		`DELETE FROM time_segments WHERE worklog_id IN (SELECT id FROM worklogs WHERE user_id = ?)`,
		`DELETE FROM adjustments WHERE worklog_id IN (SELECT id FROM worklogs WHERE user_id = ?)`,
		`DELETE FROM worklogs WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := c.q.ExecContext(ctx, stmt, id); err != nil {
			return ledger.Storage("delete user", err)
		}
	}
	return nil
}

// =============================================================================
// WORKLOGS
// =============================================================================

func (c conn) getWorkLog(ctx context.Context, id ledger.WorkLogID) (ledger.WorkLog, error) {
	var (
		w         ledger.WorkLog
		createdAt string
	)
	err := c.q.QueryRowContext(ctx,
		"SELECT id, user_id, created_at FROM worklogs WHERE id = ?", id,
	).Scan(&w.ID, &w.UserID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.WorkLog{}, ledger.ErrWorkLogNotFound
	}
	if err != nil {
		return ledger.WorkLog{}, ledger.Storage("get worklog", err)
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return ledger.WorkLog{}, err
	}
	return w, nil
}

// listWorkLogs filters by owner unless userID is empty.
func (c conn) listWorkLogs(ctx context.Context, userID ledger.UserID) ([]ledger.WorkLog, error) {
	query := "SELECT id, user_id, created_at FROM worklogs"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at, id"

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.Storage("list worklogs", err)
	}
	defer rows.Close()

	worklogs := []ledger.WorkLog{}
	for rows.Next() {
		var (
			w         ledger.WorkLog
			createdAt string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &createdAt); err != nil {
			return nil, ledger.Storage("scan worklog", err)
		}
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		worklogs = append(worklogs, w)
	}
	return worklogs, ledger.Storage("list worklogs", rows.Err())
}

func (c conn) createWorkLog(ctx context.Context, w ledger.WorkLog) error {
	if taken, err := c.exists(ctx, "worklogs", string(w.ID)); err != nil {
		return err
	} else if taken {
		return ledger.ErrWorkLogExists
	}
	ok, err := c.exists(ctx, "users", string(w.UserID))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrUserNotFound
	}
	_, err = c.q.ExecContext(ctx,
		"INSERT INTO worklogs (id, user_id, created_at) VALUES (?, ?, ?)",
		w.ID, w.UserID, formatTime(w.CreatedAt),
	)
	return ledger.Storage("create worklog", err)
}

func (c conn) deleteWorkLog(ctx context.Context, id ledger.WorkLogID) error {
	ok, err := c.exists(ctx, "worklogs", string(id))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrWorkLogNotFound
	}

	stmts := []string{
		`DELETE FROM remittance_items WHERE worklog_id = ?`,
		`DELETE FROM time_segments WHERE worklog_id = ?`,
		`DELETE FROM adjustments WHERE worklog_id = ?`,
		`DELETE FROM worklogs WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := c.q.ExecContext(ctx, stmt, id); err != nil {
			return ledger.Storage("delete worklog", err)
		}
	}
	return nil
}

// =============================================================================
// SEGMENTS & ADJUSTMENTS
// =============================================================================

func (c conn) listTimeSegments(ctx context.Context, id ledger.WorkLogID) ([]ledger.TimeSegment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, worklog_id, minutes, created_at FROM time_segments
		WHERE worklog_id = ? ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, ledger.Storage("list time segments", err)
	}
	defer rows.Close()

	var segments []ledger.TimeSegment
	for rows.Next() {
		var (
			s         ledger.TimeSegment
			createdAt string
		)
		if err := rows.Scan(&s.ID, &s.WorkLogID, &s.Minutes, &createdAt); err != nil {
			return nil, ledger.Storage("scan time segment", err)
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	return segments, ledger.Storage("list time segments", rows.Err())
}

func (c conn) addTimeSegment(ctx context.Context, s ledger.TimeSegment) error {
	if s.Minutes < 0 {
		return &ledger.ValidationError{Field: "minutes", Value: strconv.Itoa(s.Minutes), Reason: "must not be negative"}
	}
	if taken, err := c.exists(ctx, "time_segments", string(s.ID)); err != nil {
		return err
	} else if taken {
		return ledger.ErrSegmentExists
	}
	ok, err := c.exists(ctx, "worklogs", string(s.WorkLogID))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrWorkLogNotFound
	}
	_, err = c.q.ExecContext(ctx,
		"INSERT INTO time_segments (id, worklog_id, minutes, created_at) VALUES (?, ?, ?, ?)",
		s.ID, s.WorkLogID, s.Minutes, formatTime(s.CreatedAt),
	)
	return ledger.Storage("add time segment", err)
}

func (c conn) listAdjustments(ctx context.Context, id ledger.WorkLogID) ([]ledger.Adjustment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, worklog_id, amount, reason, created_at FROM adjustments
		WHERE worklog_id = ? ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, ledger.Storage("list adjustments", err)
	}
	defer rows.Close()

	var adjustments []ledger.Adjustment
	for rows.Next() {
		var (
			a                 ledger.Adjustment
			amount, createdAt string
		)
		if err := rows.Scan(&a.ID, &a.WorkLogID, &amount, &a.Reason, &createdAt); err != nil {
			return nil, ledger.Storage("scan adjustment", err)
		}
		if a.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, a)
	}
	return adjustments, ledger.Storage("list adjustments", rows.Err())
}

func (c conn) addAdjustment(ctx context.Context, a ledger.Adjustment) error {
	if taken, err := c.exists(ctx, "adjustments", string(a.ID)); err != nil {
		return err
	} else if taken {
		return ledger.ErrAdjustmentExists
	}
	ok, err := c.exists(ctx, "worklogs", string(a.WorkLogID))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrWorkLogNotFound
	}
	_, err = c.q.ExecContext(ctx,
		"INSERT INTO adjustments (id, worklog_id, amount, reason, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.WorkLogID, a.Amount.String(), a.Reason, formatTime(a.CreatedAt),
	)
	return ledger.Storage("add adjustment", err)
}

// =============================================================================
// REMITTANCES
// =============================================================================

const remittanceColumns = "id, user_id, period_start, period_end, status, created_at"

func scanRemittance(scan func(dest ...any) error) (ledger.Remittance, error) {
	var (
		r                          ledger.Remittance
		start, end, status, create string
	)
	if err := scan(&r.ID, &r.UserID, &start, &end, &status, &create); err != nil {
		return r, err
	}
	var err error
	if r.PeriodStart, err = parseDate(start); err != nil {
		return r, err
	}
	if r.PeriodEnd, err = parseDate(end); err != nil {
		return r, err
	}
	r.Status = ledger.RemittanceStatus(status)
	if r.CreatedAt, err = parseTime(create); err != nil {
		return r, err
	}
	return r, nil
}

func (c conn) getRemittance(ctx context.Context, id ledger.RemittanceID) (ledger.Remittance, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+remittanceColumns+" FROM remittances WHERE id = ?", id)
	r, err := scanRemittance(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Remittance{}, ledger.ErrRemittanceNotFound
	}
	if err != nil {
		return ledger.Remittance{}, ledger.Storage("get remittance", err)
	}
	return r, nil
}

func (c conn) listRemittances(ctx context.Context) ([]ledger.Remittance, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT "+remittanceColumns+" FROM remittances ORDER BY created_at, id")
	if err != nil {
		return nil, ledger.Storage("list remittances", err)
	}
	defer rows.Close()

	remittances := []ledger.Remittance{}
	for rows.Next() {
		r, err := scanRemittance(rows.Scan)
		if err != nil {
			return nil, ledger.Storage("scan remittance", err)
		}
		remittances = append(remittances, r)
	}
	return remittances, ledger.Storage("list remittances", rows.Err())
}

func (c conn) createRemittance(ctx context.Context, r ledger.Remittance) error {
	if _, err := ledger.ParseRemittanceStatus(string(r.Status)); err != nil {
		return err
	}
	if taken, err := c.exists(ctx, "remittances", string(r.ID)); err != nil {
		return err
	} else if taken {
		return ledger.ErrRemittanceExists
	}
	ok, err := c.exists(ctx, "users", string(r.UserID))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrUserNotFound
	}
	_, err = c.q.ExecContext(ctx,
		"INSERT INTO remittances ("+remittanceColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.UserID,
		r.PeriodStart.Format(dateLayout), r.PeriodEnd.Format(dateLayout),
		string(r.Status), formatTime(r.CreatedAt),
	)
	return ledger.Storage("create remittance", err)
}

func (c conn) deleteRemittance(ctx context.Context, id ledger.RemittanceID) error {
	ok, err := c.exists(ctx, "remittances", string(id))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrRemittanceNotFound
	}
	if _, err := c.q.ExecContext(ctx, "DELETE FROM remittance_items WHERE remittance_id = ?", id); err != nil {
		return ledger.Storage("delete remittance items", err)
	}
	_, err = c.q.ExecContext(ctx, "DELETE FROM remittances WHERE id = ?", id)
	return ledger.Storage("delete remittance", err)
}

// =============================================================================
// REMITTANCE ITEMS
// =============================================================================

func (c conn) addRemittanceItem(ctx context.Context, item ledger.RemittanceItem) error {
	if taken, err := c.exists(ctx, "remittance_items", string(item.ID)); err != nil {
		return err
	} else if taken {
		return ledger.ErrItemExists
	}
	ok, err := c.exists(ctx, "remittances", string(item.RemittanceID))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrRemittanceNotFound
	}
	if ok, err = c.exists(ctx, "worklogs", string(item.WorkLogID)); err != nil {
		return err
	}
	if !ok {
		return ledger.ErrWorkLogNotFound
	}
	_, err = c.q.ExecContext(ctx,
		"INSERT INTO remittance_items (id, remittance_id, worklog_id, amount, created_at) VALUES (?, ?, ?, ?, ?)",
		item.ID, item.RemittanceID, item.WorkLogID, item.Amount.String(), formatTime(item.CreatedAt),
	)
	return ledger.Storage("add remittance item", err)
}

func (c conn) listRemittanceItems(ctx context.Context, id ledger.RemittanceID) ([]ledger.RemittanceItem, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, remittance_id, worklog_id, amount, created_at FROM remittance_items
		WHERE remittance_id = ? ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, ledger.Storage("list remittance items", err)
	}
	defer rows.Close()

	var items []ledger.RemittanceItem
	for rows.Next() {
		var (
			item              ledger.RemittanceItem
			amount, createdAt string
		)
		if err := rows.Scan(&item.ID, &item.RemittanceID, &item.WorkLogID, &amount, &createdAt); err != nil {
			return nil, ledger.Storage("scan remittance item", err)
		}
		if item.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, ledger.Storage("list remittance items", rows.Err())
}

// listRemittedItems joins each item paying the work-log with its parent's
// status. Non-SUCCESS rows are returned too; the calculator decides.
func (c conn) listRemittedItems(ctx context.Context, id ledger.WorkLogID) ([]ledger.RemittedItem, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT i.id, i.remittance_id, i.worklog_id, i.amount, i.created_at, r.status
		FROM remittance_items i
		JOIN remittances r ON r.id = i.remittance_id
		WHERE i.worklog_id = ?
		ORDER BY i.created_at, i.id
	`, id)
	if err != nil {
		return nil, ledger.Storage("list remitted items", err)
	}
	defer rows.Close()

	var items []ledger.RemittedItem
	for rows.Next() {
		var (
			item                      ledger.RemittedItem
			amount, createdAt, status string
		)
		if err := rows.Scan(&item.ID, &item.RemittanceID, &item.WorkLogID, &amount, &createdAt, &status); err != nil {
			return nil, ledger.Storage("scan remitted item", err)
		}
		if item.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		item.Status = ledger.RemittanceStatus(status)
		items = append(items, item)
	}
	return items, ledger.Storage("list remitted items", rows.Err())
}
