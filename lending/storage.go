package lending

import (
	"context"
)

// DurableStore is the persistence collaborator of the Ledger. Each Persist
// call receives the full collection as a consistent snapshot; each Load call
// returns the last persisted snapshot, or an empty collection when nothing
// was ever persisted. Calls are synchronous from the Ledger's point of view,
// and a failed Persist surfaces as ErrPersistenceFailure from the operation
// that triggered the write.
//
// Implementations in this module: jsonstore (JSON files), sqlitestore
// (SQLite), postgresstore (Postgres JSONB documents).
type DurableStore interface {
	LoadCatalog(ctx context.Context) ([]Book, error)
	PersistCatalog(ctx context.Context, books []Book) error

	LoadLedger(ctx context.Context) ([]LoanRecord, error)
	PersistLedger(ctx context.Context, records []LoanRecord) error

	LoadProfiles(ctx context.Context) ([]BorrowerProfile, error)
	PersistProfiles(ctx context.Context, profiles []BorrowerProfile) error
}
