/*
store.go - Persistence contracts for the settlement ledger

PURPOSE:
  Defines the interface between the settlement logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Reader:        Lookups and listings, no side effects
  Writer:        Create/delete for the five record kinds plus users
  Store:         Reader + Writer
  TxStore:       Store with atomic multi-record writes
  UserDirectory: Enumerates every known user

CASCADE CONTRACT:
  Deletes are ownership-aware and run inside one transaction:
  - DeleteWorkLog:    segments, adjustments, items paying it, then the work-log
  - DeleteRemittance: its items, then the remittance
  - DeleteUser:       the user's remittances and work-logs (each cascading),
                      then the user
  Orphaned segments, adjustments or items are therefore impossible.

IDENTIFIERS:
  CreateUser upserts profile fields. Every other create or add fails with
  an ErrConflict child when the ID is already taken; the existing record is
  left untouched.

IMMUTABILITY:
  No Update method exists for RemittanceItem. Remittance status changes
  belong to the payment rail and are outside this interface.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for tests and ephemeral runs
*/
package ledger

import "context"

// =============================================================================
// READER
// =============================================================================

type Reader interface {
	GetUser(ctx context.Context, id UserID) (User, error)

	// GetWorkLog returns ErrWorkLogNotFound if id does not resolve.
	GetWorkLog(ctx context.Context, id WorkLogID) (WorkLog, error)

	// ListWorkLogs returns every work-log ordered by creation time, then ID.
	ListWorkLogs(ctx context.Context) ([]WorkLog, error)

	ListWorkLogsByUser(ctx context.Context, userID UserID) ([]WorkLog, error)

	ListTimeSegments(ctx context.Context, workLogID WorkLogID) ([]TimeSegment, error)

	ListAdjustments(ctx context.Context, workLogID WorkLogID) ([]Adjustment, error)

	// ListRemittedItems returns every item paying workLogID, regardless of
	// the parent remittance's status. Filtering is the caller's job.
	ListRemittedItems(ctx context.Context, workLogID WorkLogID) ([]RemittedItem, error)

	GetRemittance(ctx context.Context, id RemittanceID) (Remittance, error)

	ListRemittances(ctx context.Context) ([]Remittance, error)

	ListRemittanceItems(ctx context.Context, remittanceID RemittanceID) ([]RemittanceItem, error)
}

// =============================================================================
// WRITER
// =============================================================================

type Writer interface {
	CreateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id UserID) error

	// CreateWorkLog fails with ErrUserNotFound if the owner is unknown.
	CreateWorkLog(ctx context.Context, w WorkLog) error
	DeleteWorkLog(ctx context.Context, id WorkLogID) error

	// AddTimeSegment rejects negative minutes with a ValidationError.
	AddTimeSegment(ctx context.Context, s TimeSegment) error
	AddAdjustment(ctx context.Context, a Adjustment) error

	CreateRemittance(ctx context.Context, r Remittance) error
	AddRemittanceItem(ctx context.Context, item RemittanceItem) error
	DeleteRemittance(ctx context.Context, id RemittanceID) error
}

type Store interface {
	Reader
	Writer
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// UserDirectory enumerates every user the generator should consider.
type UserDirectory interface {
	ListUserIDs(ctx context.Context) ([]UserID, error)
}
