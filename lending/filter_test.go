package lending_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/lending-ledger-go/lending"
	"github.com/openshelf/lending-ledger-go/testutil/lending/fixtures"
)

func Test_Filter_ZeroValue_ShouldMatchEveryBook(t *testing.T) {
	// arrange
	available := fixtures.BuildBook("book-1", "The Go Programming Language", "Alan Donovan", "golang")
	onLoan := fixtures.BuildBook("book-2", "The Pragmatic Programmer", "Andrew Hunt")
	onLoan.Available = false

	// act + assert
	assert.True(t, lending.Filter{}.Matches(available))
	assert.True(t, lending.Filter{}.Matches(onLoan))
}

func Test_Filter_Matching_ShouldMatchSubstrings_OverTitleAuthorAndID(t *testing.T) {
	// arrange
	book := fixtures.BuildBook("go-classics-001", "The Go Programming Language", "Alan Donovan", "golang")

	testCases := []struct {
		name    string
		query   string
		matches bool
	}{
		{
			name:    "title substring with different case",
			query:   "pROgRAMMING",
			matches: true,
		},
		{
			name:    "author substring",
			query:   "donovan",
			matches: true,
		},
		{
			name:    "id substring",
			query:   "classics",
			matches: true,
		},
		{
			name:    "query with surrounding whitespace",
			query:   "  go  ",
			matches: true,
		},
		{
			name:    "no field contains the query",
			query:   "haskell",
			matches: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			filter := lending.BuildFilter().Matching(tc.query).Finalize()

			// assert
			assert.Equal(t, tc.matches, filter.Matches(book))
		})
	}
}

func Test_Filter_WithTags_ShouldRequireEveryTag(t *testing.T) {
	// arrange
	book := fixtures.BuildBook("book-1", "Dune", "Frank Herbert", "SciFi", "classics")

	testCases := []struct {
		name    string
		tags    []string
		matches bool
	}{
		{
			name:    "single tag with different case",
			tags:    []string{"scifi"},
			matches: true,
		},
		{
			name:    "all tags present",
			tags:    []string{"scifi", "CLASSICS"},
			matches: true,
		},
		{
			name:    "one tag missing",
			tags:    []string{"scifi", "fantasy"},
			matches: false,
		},
		{
			name:    "empty tags are ignored",
			tags:    []string{"", "classics", "  "},
			matches: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			filter := lending.BuildFilter().WithTags(tc.tags...).Finalize()

			// assert
			assert.Equal(t, tc.matches, filter.Matches(book))
		})
	}
}

func Test_Filter_Availability_ShouldNarrowMatches(t *testing.T) {
	// arrange
	available := fixtures.BuildBook("book-1", "Dune", "Frank Herbert")
	onLoan := fixtures.BuildBook("book-2", "Dune Messiah", "Frank Herbert")
	onLoan.Available = false

	// act
	onlyAvailable := lending.BuildFilter().OnlyAvailable().Finalize()
	onlyUnavailable := lending.BuildFilter().OnlyUnavailable().Finalize()

	// assert
	assert.True(t, onlyAvailable.Matches(available))
	assert.False(t, onlyAvailable.Matches(onLoan))
	assert.False(t, onlyUnavailable.Matches(available))
	assert.True(t, onlyUnavailable.Matches(onLoan))
}

func Test_Filter_ShouldCombineAllPredicates(t *testing.T) {
	// arrange
	matching := fixtures.BuildBook("book-1", "Dune", "Frank Herbert", "scifi")
	wrongTag := fixtures.BuildBook("book-2", "Dune Messiah", "Frank Herbert", "fantasy")
	onLoan := fixtures.BuildBook("book-3", "Children of Dune", "Frank Herbert", "scifi")
	onLoan.Available = false

	filter := lending.BuildFilter().
		Matching("dune").
		WithTags("scifi").
		OnlyAvailable().
		Finalize()

	// act + assert
	assert.True(t, filter.Matches(matching))
	assert.False(t, filter.Matches(wrongTag))
	assert.False(t, filter.Matches(onLoan))
}
