// Package fixtures builds deterministic lending values for tests. All
// fixtures derive their timestamps from BaseTime so that assertions on due
// dates and fines stay stable.
package fixtures

import (
	"time"

	"github.com/openshelf/lending-ledger-go/lending"
)

// BaseTime is the reference instant fixtures build on.
var BaseTime = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

// BuildNewBook creates AddBook input with the given identity and traits.
func BuildNewBook(id lending.BookID, title, author string, tags ...string) lending.NewBook {
	return lending.NewBook{
		ID:     id,
		Title:  title,
		Author: author,
		Tags:   tags,
	}
}

// FixtureCatalogBook creates AddBook input with full, realistic attributes
// for tests where the content does not matter.
func FixtureCatalogBook(id lending.BookID) lending.NewBook {
	return lending.NewBook{
		ID:          id,
		Title:       "Domain-Driven Design: Tackling Complexity in the Heart of Software",
		Author:      "Eric Evans",
		Tags:        []string{"software", "design"},
		Publisher:   "Addison-Wesley",
		ISBN:        "978-0-321-12521-7",
		Pages:       560,
		Language:    "en",
		Description: "The classic on modelling complex domains.",
	}
}

// BuildBook creates a catalog entry as the ledger persists it: available,
// never issued, created at BaseTime. Useful for seeding stores directly.
func BuildBook(id lending.BookID, title, author string, tags ...string) lending.Book {
	return lending.Book{
		ID:        id,
		Title:     title,
		Author:    author,
		Tags:      tags,
		Available: true,
		CreatedAt: BaseTime,
	}
}

// BuildLoanRecord creates an open loan record issued at issuedAt with the
// standard two-week period.
func BuildLoanRecord(id lending.RecordID, bookID lending.BookID, borrowerID lending.BorrowerID, issuedAt time.Time) lending.LoanRecord {
	return lending.LoanRecord{
		ID:         id,
		BookID:     bookID,
		BorrowerID: borrowerID,
		IssuedAt:   issuedAt,
		DueAt:      issuedAt.Add(lending.DefaultLoanPeriod),
	}
}

// BuildReturnedLoanRecord creates a closed loan record returned at
// returnedAt.
func BuildReturnedLoanRecord(id lending.RecordID, bookID lending.BookID, borrowerID lending.BorrowerID, issuedAt, returnedAt time.Time) lending.LoanRecord {
	record := BuildLoanRecord(id, bookID, borrowerID, issuedAt)
	record.ReturnedAt = &returnedAt
	record.Returned = true

	return record
}

// BuildBorrowerProfile creates a profile joined at BaseTime with the given
// favorites.
func BuildBorrowerProfile(id lending.BorrowerID, name string, favorites ...lending.BookID) lending.BorrowerProfile {
	return lending.BorrowerProfile{
		ID:        id,
		Name:      name,
		Favorites: favorites,
		JoinedAt:  BaseTime,
	}
}
