package lending

import (
	"errors"
)

// Not-found failures: the referenced entity does not exist.
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrBorrowerNotFound = errors.New("borrower not found")
	ErrRecordNotFound   = errors.New("loan record not found")
)

// Conflict failures: the operation is valid but the current state forbids
// it; callers are expected to branch on these, they are not defects.
var (
	ErrNotAvailable      = errors.New("book is not available")
	ErrNoActiveLoan      = errors.New("no active loan for this book")
	ErrBookInUse         = errors.New("book has an active loan and cannot be removed")
	ErrDuplicateBookID   = errors.New("book id already present in catalog")
	ErrDuplicateBorrower = errors.New("borrower id already registered")
	ErrAlreadyFavorite   = errors.New("book is already a favorite")
	ErrNotFavorite       = errors.New("book is not a favorite")
)

// ErrNotBorrower is returned by borrower-scoped returns when the supplied
// borrower does not hold the active loan.
var ErrNotBorrower = errors.New("active loan belongs to a different borrower")

// Persistence failures: the durable store misbehaved. ErrPersistenceFailure
// wraps the store's cause via errors.Join; the triggering operation has been
// rolled back in memory when it surfaces.
var (
	ErrPersistenceFailure = errors.New("persisting ledger state failed")
	ErrLedgerCorrupted    = errors.New("loaded ledger state violates invariants")
)

// Validation failures for malformed input and configuration.
var (
	ErrMissingTitle          = errors.New("empty book title supplied")
	ErrMissingAuthor         = errors.New("empty book author supplied")
	ErrMissingBorrowerID     = errors.New("empty borrower id supplied")
	ErrInvalidRating         = errors.New("review rating must be between 1 and 5")
	ErrNilDurableStore       = errors.New("nil durable store supplied")
	ErrNilClock              = errors.New("nil clock supplied")
	ErrNonPositiveLoanPeriod = errors.New("loan period must be positive")
	ErrNegativeFinePerDay    = errors.New("negative fine per day supplied")
	ErrNegativeDueSoonWindow = errors.New("negative due soon window supplied")
)

// Configuration failures shared by the DurableStore implementations.
var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("table name must not be empty")
	ErrEmptyDataDirectory    = errors.New("data directory must not be empty")
	ErrEmptyDatabasePath     = errors.New("database path must not be empty")
)

// IsNotFound reports whether err is one of the not-found failures.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrBorrowerNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsConflict reports whether err is one of the recoverable conflict failures.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotAvailable) ||
		errors.Is(err, ErrNoActiveLoan) ||
		errors.Is(err, ErrBookInUse) ||
		errors.Is(err, ErrDuplicateBookID) ||
		errors.Is(err, ErrDuplicateBorrower) ||
		errors.Is(err, ErrAlreadyFavorite) ||
		errors.Is(err, ErrNotFavorite)
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrNotBorrower)
}

// IsPersistenceFailure reports whether err originates from the durable store.
func IsPersistenceFailure(err error) bool {
	return errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrLedgerCorrupted)
}
