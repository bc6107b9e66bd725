package settlement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// REMITTANCE GENERATOR
// =============================================================================

// GenerationResult summarizes one run. Failed users are not counted in
// Generated and never abort the run.
type GenerationResult struct {
	Generated int
	Failures  []ledger.UserFailure
}

// Generator creates a SUCCESS remittance for every user with a positive
// payable balance.
//
// ATOMICITY:
//   Each user is settled inside one WithTx: the payable read, the Remittance
//   and all of its RemittanceItems commit together or not at all. A failure
//   rolls back that user only; users already committed stay committed.
//
// CONCURRENCY:
//   Users' ledgers are disjoint, so up to Workers users are settled in
//   parallel. Two concurrent runs are not coordinated (single writer).
type Generator struct {
	Store   ledger.TxStore
	Users   ledger.UserDirectory
	Logger  *log.Logger
	Workers int
	Now     func() time.Time
}

// NewGenerator returns a sequential Generator using the wall clock.
func NewGenerator(store ledger.TxStore, users ledger.UserDirectory, logger *log.Logger) *Generator {
	return &Generator{Store: store, Users: users, Logger: logger, Workers: 1, Now: time.Now}
}

// Run settles every user returned by the directory.
// It fails only if the directory itself cannot be read or ctx is cancelled.
func (g *Generator) Run(ctx context.Context) (GenerationResult, error) {
	logger := g.logger()

	ids, err := g.Users.ListUserIDs(ctx)
	if err != nil {
		return GenerationResult{}, ledger.Storage("list user ids", err)
	}

	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	// Periods are calendar dates in UTC.
	now = now.UTC()

	var (
		mu     sync.Mutex
		result GenerationResult
		eg     errgroup.Group
	)
	eg.SetLimit(max(g.Workers, 1))

	for _, id := range ids {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			remittance, total, err := g.settleUser(ctx, id, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logger.Warn("remittance generation failed", "user", id, "err", err)
				result.Failures = append(result.Failures, ledger.UserFailure{UserID: id, Err: err})
			case remittance != nil:
				logger.Debug("remittance generated", "user", id, "remittance", remittance.ID, "amount", total.StringFixed(2))
				result.Generated++
			}
			return nil
		})
	}
	err = eg.Wait()

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].UserID < result.Failures[j].UserID
	})
	logger.Info("remittance run complete", "users", len(ids), "generated", result.Generated, "failed", len(result.Failures))
	return result, err
}

// settleUser returns a nil remittance when the user has nothing payable.
func (g *Generator) settleUser(ctx context.Context, userID ledger.UserID, now time.Time) (*ledger.Remittance, decimal.Decimal, error) {
	var (
		created *ledger.Remittance
		total   = decimal.Zero
	)

	err := g.Store.WithTx(ctx, func(tx ledger.Store) error {
		worklogs, err := tx.ListWorkLogsByUser(ctx, userID)
		if err != nil {
			return err
		}

		var items []ledger.RemittanceItem
		for _, w := range worklogs {
			a, err := loadChildren(ctx, tx, w)
			if err != nil {
				return err
			}
			payable := a.Payable()
			if !payable.IsPositive() {
				continue
			}
			items = append(items, ledger.RemittanceItem{
				ID:        ledger.RemittanceItemID(ledger.NewID()),
				WorkLogID: w.ID,
				Amount:    payable,
				CreatedAt: now,
			})
			total = total.Add(payable)
		}

		if !total.IsPositive() {
			return nil
		}

		r := ledger.Remittance{
			ID:          ledger.RemittanceID(ledger.NewID()),
			UserID:      userID,
			PeriodStart: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			Status:      ledger.RemittanceSuccess,
			CreatedAt:   now,
		}
		if err := tx.CreateRemittance(ctx, r); err != nil {
			return err
		}
		for _, item := range items {
			item.RemittanceID = r.ID
			if err := tx.AddRemittanceItem(ctx, item); err != nil {
				return err
			}
		}
		created = &r
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return created, total, nil
}

func (g *Generator) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}
