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

// availableBook builds a catalog entry with a popularity counter.
func availableBook(id lending.BookID, title, author string, timesIssued int, tags ...string) lending.Book {
	book := BuildBook(id, title, author, tags...)
	book.TimesIssued = timesIssued

	return book
}

// lentOutBook builds a catalog entry currently on loan; the caller must seed
// a matching open record to keep the loaded state consistent.
func lentOutBook(id lending.BookID, title, author string, timesIssued int, tags ...string) lending.Book {
	book := availableBook(id, title, author, timesIssued, tags...)
	book.Available = false

	return book
}

func recommendedIDs(books []lending.Book) []lending.BookID {
	ids := make([]lending.BookID, 0, len(books))
	for _, book := range books {
		ids = append(ids, book.ID)
	}

	return ids
}

func Test_Recommend_ShouldReturnNothing_ForNonPositiveTopN(t *testing.T) {
	// arrange
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	GivenBookWasAdded(t, ctx, ledger, FixtureCatalogBook("book-1"))

	// act + assert
	assert.Nil(t, ledger.Recommend("reader-1", 0))
	assert.Nil(t, ledger.Recommend("reader-1", -3))
}

func Test_Recommend_ShouldFallBackToPopularity_ForBorrowersWithoutHistory(t *testing.T) {
	// arrange
	store := NewDurableStoreSpy()
	store.SeedCatalog(
		availableBook("pop-9", "Hyperion", "Dan Simmons", 9, "scifi"),
		availableBook("tie-5a", "Dune", "Frank Herbert", 5, "scifi"),
		availableBook("tie-5b", "Neuromancer", "William Gibson", 5, "scifi"),
		availableBook("low-1", "Solaris", "Stanislaw Lem", 1, "scifi"),
		lentOutBook("hot-20", "Foundation", "Isaac Asimov", 20, "scifi"),
	)
	store.SeedLedger(BuildLoanRecord("record-1", "hot-20", "other-reader", BaseTime))

	ledger, err := lending.NewLedger(context.Background(), store)
	assert.NoError(t, err)

	// act
	everything := ledger.Recommend("newcomer", 10)
	topTwo := ledger.Recommend("newcomer", 2)

	// assert: popularity descending, ties by id, lent-out books skipped
	assert.Equal(t, []lending.BookID{"pop-9", "tie-5a", "tie-5b", "low-1"}, recommendedIDs(everything))
	assert.Equal(t, []lending.BookID{"pop-9", "tie-5a"}, recommendedIDs(topTwo))
}

func Test_Recommend_ShouldRankByAuthorTagsPopularityAndAvailability(t *testing.T) {
	// arrange
	store := NewDurableStoreSpy()
	store.SeedCatalog(
		availableBook("dune", "Dune", "Frank Herbert", 1, "scifi", "classics"),
		availableBook("dune-messiah", "Dune Messiah", "Frank Herbert", 0, "scifi"),
		lentOutBook("dune-prophecy", "Heretics of Dune", "Frank Herbert", 0, "scifi"),
		availableBook("hyperion", "Hyperion", "Dan Simmons", 3, "scifi"),
		availableBook("craftsman", "The Craftsman", "Richard Sennett", 8, "philosophy"),
	)
	store.SeedLedger(
		BuildReturnedLoanRecord("record-1", "dune", "paul", BaseTime, BaseTime.Add(24*time.Hour)),
		BuildLoanRecord("record-2", "dune-prophecy", "other-reader", BaseTime),
	)

	ledger, err := lending.NewLedger(context.Background(), store)
	assert.NoError(t, err)

	// act
	recommended := ledger.Recommend("paul", 10)
	again := ledger.Recommend("paul", 10)

	// assert: author matches first, availability splits them, then tag
	// overlap, then plain popularity; the read book never reappears
	assert.Equal(t,
		[]lending.BookID{"dune-messiah", "dune-prophecy", "hyperion", "craftsman"},
		recommendedIDs(recommended))
	assert.Equal(t, recommendedIDs(recommended), recommendedIDs(again), "the ranking must be deterministic")

	// assert: truncation keeps the head of the ranking
	assert.Equal(t, []lending.BookID{"dune-messiah", "dune-prophecy"}, recommendedIDs(ledger.Recommend("paul", 2)))
}

func Test_Recommend_ShouldTreatFavorites_AsHistory(t *testing.T) {
	// arrange: the borrower never borrowed anything, only favorited one book
	store := NewDurableStoreSpy()
	store.SeedCatalog(
		availableBook("dune", "Dune", "Frank Herbert", 5, "scifi"),
		availableBook("hyperion", "Hyperion", "Dan Simmons", 3, "scifi"),
		availableBook("craftsman", "The Craftsman", "Richard Sennett", 8, "philosophy"),
	)
	store.SeedProfiles(BuildBorrowerProfile("fan", "Duncan", "dune"))

	ledger, err := lending.NewLedger(context.Background(), store)
	assert.NoError(t, err)

	// act
	recommended := ledger.Recommend("fan", 10)

	// assert: the favorite is excluded; with no loans there is no seed, so
	// the rest rank by popularity and availability alone
	assert.Equal(t, []lending.BookID{"craftsman", "hyperion"}, recommendedIDs(recommended))
}

func Test_Recommend_ShouldSeedFrom_TheThreeMostRecentLoans(t *testing.T) {
	// arrange: four loans; the oldest author must not influence the seed
	store := NewDurableStoreSpy()
	store.SeedCatalog(
		availableBook("read-a", "Book A", "Author A", 0, "a"),
		availableBook("read-b", "Book B", "Author B", 0, "b"),
		availableBook("read-c", "Book C", "Author C", 0, "c"),
		availableBook("read-d", "Book D", "Author D", 0, "d"),
		availableBook("new-a", "Another A", "Author A", 0),
		availableBook("new-b", "Another B", "Author B", 0),
	)
	store.SeedLedger(
		BuildReturnedLoanRecord("record-1", "read-a", "serial", BaseTime, BaseTime.Add(time.Hour)),
		BuildReturnedLoanRecord("record-2", "read-b", "serial", BaseTime.Add(24*time.Hour), BaseTime.Add(25*time.Hour)),
		BuildReturnedLoanRecord("record-3", "read-c", "serial", BaseTime.Add(48*time.Hour), BaseTime.Add(49*time.Hour)),
		BuildReturnedLoanRecord("record-4", "read-d", "serial", BaseTime.Add(72*time.Hour), BaseTime.Add(73*time.Hour)),
	)

	ledger, err := lending.NewLedger(context.Background(), store)
	assert.NoError(t, err)

	// act
	recommended := ledger.Recommend("serial", 10)

	// assert: new-b matches a seed author and ranks first; new-a matches
	// only the dropped oldest loan and scores as an ordinary available book
	assert.Equal(t, []lending.BookID{"new-b", "new-a"}, recommendedIDs(recommended))
}

func Test_Recommend_ShouldMatchTraits_CaseInsensitively(t *testing.T) {
	// arrange
	store := NewDurableStoreSpy()
	store.SeedCatalog(
		availableBook("read", "Dune", "FRANK HERBERT", 0, "SCIFI"),
		availableBook("match", "Dune Messiah", "frank herbert", 0, "SciFi"),
		availableBook("popular", "The Craftsman", "Richard Sennett", 9, "philosophy"),
	)
	store.SeedLedger(
		BuildReturnedLoanRecord("record-1", "read", "paul", BaseTime, BaseTime.Add(time.Hour)),
	)

	ledger, err := lending.NewLedger(context.Background(), store)
	assert.NoError(t, err)

	// act
	recommended := ledger.Recommend("paul", 10)

	// assert: the author and tag boosts beat raw popularity
	assert.Equal(t, []lending.BookID{"match", "popular"}, recommendedIDs(recommended))
}

func Test_Recommend_ShouldReturnFewer_WhenTheCatalogRunsOut(t *testing.T) {
	// arrange
	store := NewDurableStoreSpy()
	store.SeedCatalog(
		availableBook("read", "Dune", "Frank Herbert", 1, "scifi"),
		availableBook("other", "Hyperion", "Dan Simmons", 0, "scifi"),
	)
	store.SeedLedger(
		BuildReturnedLoanRecord("record-1", "read", "paul", BaseTime, BaseTime.Add(time.Hour)),
	)

	ledger, err := lending.NewLedger(context.Background(), store)
	assert.NoError(t, err)

	// act
	recommended := ledger.Recommend("paul", 5)

	// assert
	assert.Equal(t, []lending.BookID{"other"}, recommendedIDs(recommended))
}

func Test_Recommend_ShouldBreakTies_ByBookID(t *testing.T) {
	// arrange: two books with identical traits and counters
	store := NewDurableStoreSpy()
	store.SeedCatalog(
		availableBook("read", "Dune", "Frank Herbert", 0, "scifi"),
		availableBook("beta", "Dune Messiah", "Frank Herbert", 0, "scifi"),
		availableBook("alpha", "Children of Dune", "Frank Herbert", 0, "scifi"),
	)
	store.SeedLedger(
		BuildReturnedLoanRecord("record-1", "read", "paul", BaseTime, BaseTime.Add(time.Hour)),
	)

	ledger, err := lending.NewLedger(context.Background(), store)
	assert.NoError(t, err)

	// act
	recommended := ledger.Recommend("paul", 10)

	// assert
	assert.Equal(t, []lending.BookID{"alpha", "beta"}, recommendedIDs(recommended))
}
