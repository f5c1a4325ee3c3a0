package lending_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/lending-ledger-go/lending"
	. "github.com/openshelf/lending-ledger-go/testutil/lending/fixtures" //nolint:revive
	. "github.com/openshelf/lending-ledger-go/testutil/lending/helper"   //nolint:revive
)

func Test_Issue_ShouldOpenALoan_AndFlipTheBookToUnavailable(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, store, _ := newTestLedger(t)
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))

	// act
	record, err := ledger.Issue(ctx, book.ID, "reader-1", 0)

	// assert
	assert.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, book.ID, record.BookID)
	assert.Equal(t, "reader-1", record.BorrowerID)
	assert.Equal(t, BaseTime, record.IssuedAt)
	assert.Equal(t, BaseTime.Add(lending.DefaultLoanPeriod), record.DueAt)
	assert.True(t, record.Active())

	lent, err := ledger.GetBook(book.ID)
	assert.NoError(t, err)
	assert.False(t, lent.Available)
	assert.Equal(t, 1, lent.TimesIssued)

	assert.Len(t, store.StoredLedger(), 1, "the new record must be persisted")
}

func Test_Issue_ShouldHonorThePeriod_AndTheConfiguredDefault(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t, lending.WithLoanPeriod(7*24*time.Hour))
	first := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	second := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-2"))

	// act
	withDefault, err := ledger.Issue(ctx, first.ID, "reader-1", 0)
	assert.NoError(t, err)

	withExplicit, err := ledger.Issue(ctx, second.ID, "reader-1", 48*time.Hour)
	assert.NoError(t, err)

	// assert
	assert.Equal(t, BaseTime.Add(7*24*time.Hour), withDefault.DueAt)
	assert.Equal(t, BaseTime.Add(48*time.Hour), withExplicit.DueAt)
}

func Test_Issue_ShouldFail_WhileTheBookIsLentOut(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")

	// act
	_, err := ledger.Issue(ctx, book.ID, "reader-2", 0)

	// assert
	assert.ErrorIs(t, err, lending.ErrNotAvailable)
	assert.True(t, lending.IsConflict(err))

	lent, getErr := ledger.GetBook(book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 1, lent.TimesIssued, "the refused issue must not bump the counter")
}

func Test_Issue_ShouldFail_ForBadInput(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))

	testCases := []struct {
		name       string
		bookID     lending.BookID
		borrowerID lending.BorrowerID
		expected   error
	}{
		{
			name:       "unknown book",
			bookID:     "vanished",
			borrowerID: "reader-1",
			expected:   lending.ErrBookNotFound,
		},
		{
			name:       "empty borrower id",
			bookID:     "book-1",
			borrowerID: "",
			expected:   lending.ErrMissingBorrowerID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := ledger.Issue(ctx, tc.bookID, tc.borrowerID, 0)

			// assert
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func Test_Return_ShouldCloseTheLoan_AndReportTheFine(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, clock := newTestLedger(t, lending.WithFinePerDay(10))
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	record := GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")

	clock.Advance(20 * 24 * time.Hour) // six days past the two-week due time

	// act
	fine, err := ledger.Return(ctx, book.ID, "reader-1")

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int64(60), fine)

	closed, err := ledger.Record(record.ID)
	assert.NoError(t, err)
	assert.False(t, closed.Active())
	assert.NotNil(t, closed.ReturnedAt)
	assert.Equal(t, clock.Now(), *closed.ReturnedAt)

	back, err := ledger.GetBook(book.ID)
	assert.NoError(t, err)
	assert.True(t, back.Available)
	assert.Equal(t, 1, back.TimesIssued, "returning must not change the counter")
}

func Test_Return_ShouldChargeNothing_WhenOnTime(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, clock := newTestLedger(t, lending.WithFinePerDay(10))
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")

	clock.Advance(13 * 24 * time.Hour)

	// act
	fine, err := ledger.Return(ctx, book.ID, "reader-1")

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int64(0), fine)
}

func Test_Return_ShouldFail_WhenTheLoanBelongsToAnotherBorrower(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")

	// act
	_, err := ledger.Return(ctx, book.ID, "reader-2")

	// assert
	assert.ErrorIs(t, err, lending.ErrNotBorrower)
	assert.True(t, lending.IsUnauthorized(err))

	stillLent, getErr := ledger.GetBook(book.ID)
	assert.NoError(t, getErr)
	assert.False(t, stillLent.Available, "the loan must stay open")
}

func Test_Return_FromTheFrontDesk_ShouldSkipTheBorrowerCheck(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")

	// act
	_, err := ledger.Return(ctx, book.ID, "")

	// assert
	assert.NoError(t, err)

	back, getErr := ledger.GetBook(book.ID)
	assert.NoError(t, getErr)
	assert.True(t, back.Available)
}

func Test_Return_ShouldFail_WithoutAnActiveLoan(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")
	GivenBookWasReturned(t, ctx, ledger, book.ID, "reader-1")

	// act: the book is already back on the shelf
	_, err := ledger.Return(ctx, book.ID, "reader-1")

	// assert
	assert.ErrorIs(t, err, lending.ErrNoActiveLoan)
	assert.True(t, lending.IsConflict(err))
}

func Test_Reissue_AfterReturn_ShouldOpenASecondRecord(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, clock := newTestLedger(t)
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))

	first := GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")
	clock.Advance(24 * time.Hour)
	GivenBookWasReturned(t, ctx, ledger, book.ID, "reader-1")
	clock.Advance(24 * time.Hour)

	// act
	second, err := ledger.Issue(ctx, book.ID, "reader-2", 0)

	// assert
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	reissued, getErr := ledger.GetBook(book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 2, reissued.TimesIssued)

	history := ledger.AllLoans()
	assert.Len(t, history, 2, "closed records stay in the ledger")
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
}

func Test_LoanListings_ShouldScopeToTheBorrower_AndKeepIssueOrder(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, clock := newTestLedger(t)
	first := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	second := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-2"))
	third := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-3"))

	GivenBookWasIssued(t, ctx, ledger, first.ID, "reader-1")
	clock.Advance(time.Hour)
	GivenBookWasIssued(t, ctx, ledger, second.ID, "reader-2")
	clock.Advance(time.Hour)
	GivenBookWasIssued(t, ctx, ledger, third.ID, "reader-1")
	clock.Advance(time.Hour)
	GivenBookWasReturned(t, ctx, ledger, first.ID, "reader-1")

	// act
	active := ledger.ActiveLoansFor("reader-1")
	all := ledger.AllLoansFor("reader-1")

	// assert
	assert.Len(t, active, 1)
	assert.Equal(t, third.ID, active[0].BookID)

	assert.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].BookID, "loans are ordered by issue time")
	assert.Equal(t, third.ID, all[1].BookID)

	assert.Empty(t, ledger.ActiveLoansFor("stranger"))
}

func Test_Record_ShouldFindOneLoanByID(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	record := GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")

	// act
	found, err := ledger.Record(record.ID)
	_, missingErr := ledger.Record("vanished")

	// assert
	assert.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.ErrorIs(t, missingErr, lending.ErrRecordNotFound)
	assert.True(t, lending.IsNotFound(missingErr))
}

func Test_CurrentFine_ShouldMatchTheFine_ReportedByReturn(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, clock := newTestLedger(t, lending.WithFinePerDay(25))
	book := GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))
	record := GivenBookWasIssued(t, ctx, ledger, book.ID, "reader-1")

	clock.Advance(17 * 24 * time.Hour) // three days past due

	// act
	projected := ledger.CurrentFine(record, clock.Now())
	reported, err := ledger.Return(ctx, book.ID, "reader-1")

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int64(75), projected)
	assert.Equal(t, projected, reported)

	closed, getErr := ledger.Record(record.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, reported, ledger.CurrentFine(closed, clock.Now().Add(30*24*time.Hour)),
		"the fine of a closed loan must not drift")
}
