// Package helper provides test doubles and arrangement helpers for ledger
// tests. The Given functions arrange state through the public API and fail
// the test on any unexpected error.
package helper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/openshelf/lending-ledger-go/lending"
)

// GivenUniqueID returns a fresh, time-ordered unique identifier.
func GivenUniqueID(t testing.TB) string {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id.String()
}

// GivenBookWasAdded adds the book and returns the catalog entry.
func GivenBookWasAdded(t testing.TB, ctx context.Context, ledger *lending.Ledger, book lending.NewBook) lending.Book {
	added, err := ledger.AddBook(ctx, book)
	assert.NoError(t, err, "error in arranging test data")

	return added
}

// GivenBorrowerWasRegistered registers the borrower and returns the profile.
func GivenBorrowerWasRegistered(t testing.TB, ctx context.Context, ledger *lending.Ledger, id lending.BorrowerID, name string) lending.BorrowerProfile {
	profile, err := ledger.RegisterBorrower(ctx, id, name, "")
	assert.NoError(t, err, "error in arranging test data")

	return profile
}

// GivenBookWasIssued issues the book with the default loan period and
// returns the open record.
func GivenBookWasIssued(t testing.TB, ctx context.Context, ledger *lending.Ledger, bookID lending.BookID, borrowerID lending.BorrowerID) lending.LoanRecord {
	record, err := ledger.Issue(ctx, bookID, borrowerID, 0)
	assert.NoError(t, err, "error in arranging test data")

	return record
}

// GivenBookWasReturned returns the book and yields the assessed fine.
func GivenBookWasReturned(t testing.TB, ctx context.Context, ledger *lending.Ledger, bookID lending.BookID, borrowerID lending.BorrowerID) int64 {
	fine, err := ledger.Return(ctx, bookID, borrowerID)
	assert.NoError(t, err, "error in arranging test data")

	return fine
}

// GivenFavoriteWasAdded marks the book as a favorite of the borrower.
func GivenFavoriteWasAdded(t testing.TB, ctx context.Context, ledger *lending.Ledger, borrowerID lending.BorrowerID, bookID lending.BookID) {
	err := ledger.AddFavorite(ctx, borrowerID, bookID)
	assert.NoError(t, err, "error in arranging test data")
}
