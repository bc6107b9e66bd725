/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built ledgers that exercise the settlement rules end to
	end. Each scenario creates users, work-logs, time segments, adjustments
	and historical remittances so the listing shows every derived state.

AVAILABLE SCENARIOS:

	unpaid-worker:    Fresh work plus a bonus, nothing paid yet
	partial-payout:   One SUCCESS and one FAILED remittance on the same work-log
	reopened-worklog: Fully paid work-log that received more minutes afterwards
	over-remitted:    Refund after payment; payable floors at zero
	team:             All of the above at once

HOW SCENARIOS WORK:
 1. Reset the ledger (delete every user, cascading)
 2. Seed records in one transaction with increasing timestamps
 3. Remember the loaded scenario for GET /current

USAGE VIA API:

	POST /api/v1/scenarios/load
	{"scenario_id": "partial-payout"}

USAGE VIA CLI:

	./server seed partial-payout --db=./settlement.db

NOTE:

	Scenarios reset the ledger. Only use in development/demo environments.
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type scenario struct {
	ScenarioDTO
	load func(*seeder)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "unpaid-worker",
			Name:        "Unpaid Worker",
			Description: "120 minutes and a 5.00 bonus, never remitted (65.00 payable)",
		},
		load: loadUnpaidWorker,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "partial-payout",
			Name:        "Partial Payout",
			Description: "60.00 earned, 40.00 paid, a 20.00 payout that FAILED (20.00 payable)",
		},
		load: loadPartialPayout,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "reopened-worklog",
			Name:        "Reopened Work-log",
			Description: "Paid work-log that got 10 more minutes, next to a settled one",
		},
		load: loadReopenedWorkLog,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "over-remitted",
			Name:        "Over-remitted",
			Description: "Refund after payment; payable is 0 and the status stays REMITTED",
		},
		load: loadOverRemitted,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "team",
			Name:        "Team",
			Description: "Every scenario above, one user each",
		},
		load: func(sd *seeder) {
			loadUnpaidWorker(sd)
			loadPartialPayout(sd)
			loadReopenedWorkLog(sd)
			loadOverRemitted(sd)
		},
	},
}

// Scenarios lists the loadable scenarios in display order.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// =============================================================================
// LOADING
// =============================================================================

// resetter is implemented by stores that can truncate in one statement batch.
type resetter interface {
	Reset(ctx context.Context) error
}

// ResetLedger deletes every record. Stores without a bulk reset fall back to
// deleting each user, which cascades to everything they own.
func ResetLedger(ctx context.Context, store ledger.TxStore, users ledger.UserDirectory) error {
	if r, ok := store.(resetter); ok {
		return r.Reset(ctx)
	}
	ids, err := users.ListUserIDs(ctx)
	if err != nil {
		return ledger.Storage("list user ids", err)
	}
	return store.WithTx(ctx, func(tx ledger.Store) error {
		for _, id := range ids {
			if err := tx.DeleteUser(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedScenario resets the ledger and loads scenario id. Records are stamped
// a minute apart starting a day before now, so listing order is stable.
func SeedScenario(ctx context.Context, store ledger.TxStore, users ledger.UserDirectory, id string, now time.Time) error {
	var found *scenario
	for i := range scenarios {
		if scenarios[i].ID == id {
			found = &scenarios[i]
			break
		}
	}
	if found == nil {
		accepted := make([]string, len(scenarios))
		for i, s := range scenarios {
			accepted[i] = s.ID
		}
		return &ledger.ValidationError{Field: "scenario_id", Value: id, Accepted: accepted}
	}

	if err := ResetLedger(ctx, store, users); err != nil {
		return err
	}
	return store.WithTx(ctx, func(tx ledger.Store) error {
		sd := &seeder{ctx: ctx, s: tx, at: now.UTC().Add(-24 * time.Hour).Truncate(time.Minute)}
		found.load(sd)
		return sd.err
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the ledger with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentScenario = ""
	if err := SeedScenario(r.Context(), h.Store, h.Users, req.ScenarioID, time.Now()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase empties the ledger.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ResetLedger(r.Context(), h.Store, h.Users); err != nil {
		h.fail(w, r, err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadUnpaidWorker(sd *seeder) {
	sd.user("ada", "ada@example.com", "Ada Lovelace")
	sd.worklog("wl-ada-1", "ada")
	sd.minutes("wl-ada-1", 90, 30)
	sd.adjust("wl-ada-1", "5.00", "weekend bonus")
}

func loadPartialPayout(sd *seeder) {
	sd.user("bo", "bo@example.com", "Bo Diddley")
	sd.worklog("wl-bo-1", "bo")
	sd.minutes("wl-bo-1", 120)
	sd.remit("rem-bo-1", "bo", ledger.RemittanceSuccess, payment{"wl-bo-1", "40.00"})
	sd.remit("rem-bo-2", "bo", ledger.RemittanceFailed, payment{"wl-bo-1", "20.00"})
}

func loadReopenedWorkLog(sd *seeder) {
	sd.user("cy", "cy@example.com", "Cy Young")
	sd.worklog("wl-cy-1", "cy")
	sd.worklog("wl-cy-2", "cy")
	sd.minutes("wl-cy-1", 60)
	sd.minutes("wl-cy-2", 20)
	sd.remit("rem-cy-1", "cy", ledger.RemittanceSuccess, payment{"wl-cy-1", "30.00"}, payment{"wl-cy-2", "10.00"})
	sd.minutes("wl-cy-1", 10)
}

func loadOverRemitted(sd *seeder) {
	sd.user("di", "di@example.com", "Di Fisher")
	sd.worklog("wl-di-1", "di")
	sd.minutes("wl-di-1", 20)
	sd.remit("rem-di-1", "di", ledger.RemittanceSuccess, payment{"wl-di-1", "10.00"})
	sd.remit("rem-di-2", "di", ledger.RemittanceCancelled, payment{"wl-di-1", "3.00"})
	sd.adjust("wl-di-1", "-4.00", "duplicate entry refunded")
}

// =============================================================================
// SEEDER
// =============================================================================

// seeder writes records with strictly increasing timestamps and keeps the
// first error; later calls become no-ops.
type seeder struct {
	ctx context.Context
	s   ledger.Store
	at  time.Time
	seq int
	err error
}

type payment struct {
	worklog string
	amount  string
}

func (sd *seeder) next() time.Time {
	sd.at = sd.at.Add(time.Minute)
	return sd.at
}

func (sd *seeder) id(prefix string) string {
	sd.seq++
	return prefix + "-" + strconv.Itoa(sd.seq)
}

func (sd *seeder) do(fn func() error) {
	if sd.err == nil {
		sd.err = fn()
	}
}

func (sd *seeder) user(id, email, name string) {
	sd.do(func() error {
		return sd.s.CreateUser(sd.ctx, ledger.User{ID: ledger.UserID(id), Email: email, FullName: name, CreatedAt: sd.next()})
	})
}

func (sd *seeder) worklog(id, owner string) {
	sd.do(func() error {
		return sd.s.CreateWorkLog(sd.ctx, ledger.WorkLog{ID: ledger.WorkLogID(id), UserID: ledger.UserID(owner), CreatedAt: sd.next()})
	})
}

func (sd *seeder) minutes(worklog string, minutes ...int) {
	for _, m := range minutes {
		sd.do(func() error {
			at := sd.next()
			return sd.s.AddTimeSegment(sd.ctx, ledger.TimeSegment{
				ID: ledger.TimeSegmentID(sd.id("seg")), WorkLogID: ledger.WorkLogID(worklog), Minutes: m, CreatedAt: at,
			})
		})
	}
}

func (sd *seeder) adjust(worklog, amount, reason string) {
	sd.do(func() error {
		at := sd.next()
		return sd.s.AddAdjustment(sd.ctx, ledger.Adjustment{
			ID: ledger.AdjustmentID(sd.id("adj")), WorkLogID: ledger.WorkLogID(worklog),
			Amount: decimal.RequireFromString(amount), Reason: reason, CreatedAt: at,
		})
	})
}

func (sd *seeder) remit(id, owner string, status ledger.RemittanceStatus, payments ...payment) {
	sd.do(func() error {
		at := sd.next()
		return sd.s.CreateRemittance(sd.ctx, ledger.Remittance{
			ID: ledger.RemittanceID(id), UserID: ledger.UserID(owner), Status: status, CreatedAt: at,
			PeriodStart: time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
		})
	})
	for _, p := range payments {
		sd.do(func() error {
			return sd.s.AddRemittanceItem(sd.ctx, ledger.RemittanceItem{
				ID: ledger.RemittanceItemID(sd.id("item")), RemittanceID: ledger.RemittanceID(id),
				WorkLogID: ledger.WorkLogID(p.worklog), Amount: decimal.RequireFromString(p.amount), CreatedAt: sd.next(),
			})
		})
	}
}
