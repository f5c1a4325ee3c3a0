// Package lending provides the core state machine of a library lending
// ledger: a catalog of books, an append-only loan ledger, borrower profiles
// with favorites, overdue fines, a deterministic recommendation scorer, and
// a derived due-date notification feed.
//
// The Ledger holds its whole state in memory (arena-style maps guarded by a
// read-write lock) and writes through to an abstract DurableStore after
// every committed mutation. Mutating operations on the same book serialize
// on a per-book lock; operations on different books only contend for the
// brief commit section, never for each other's store round trips.
//
// Guarantees upheld after every operation:
//   - A book is available exactly when it has no open loan record.
//   - At most one open loan record exists per book.
//   - The times-issued counter equals the number of records ever created.
//   - A book with an open loan cannot be removed from the catalog.
//
// Failed persistence rolls the in-memory commit back and surfaces as
// ErrPersistenceFailure; no operation reports success unless its state
// change is durable.
//
// Common usage pattern:
//
//	store, _ := jsonstore.New("/var/lib/openshelf")
//	ledger, err := lending.NewLedger(ctx, store,
//		lending.WithLoanPeriod(14*24*time.Hour),
//		lending.WithFinePerDay(10),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	record, err := ledger.Issue(ctx, bookID, borrowerID, 0)
//	if errors.Is(err, lending.ErrNotAvailable) {
//		// the book is on loan, a recoverable outcome
//	}
//
//	fine, err := ledger.Return(ctx, bookID, borrowerID)
//
//	picks := ledger.Recommend(borrowerID, 6)
package lending
