package helper

import (
	"context"
	"sync"

	"github.com/openshelf/lending-ledger-go/lending"
)

// DurableStoreSpy is an in-memory DurableStore that keeps the last persisted
// snapshot of each collection, counts persist calls, and can be primed to
// fail individual load or persist calls. It lets ledger tests observe
// write-through behavior and rollback handling without a real database.
type DurableStoreSpy struct {
	mu sync.Mutex

	catalog  []lending.Book
	records  []lending.LoanRecord
	profiles []lending.BorrowerProfile

	loadCatalogErr     error
	loadLedgerErr      error
	loadProfilesErr    error
	persistCatalogErr  error
	persistLedgerErr   error
	persistProfilesErr error

	persistCatalogCalls  int
	persistLedgerCalls   int
	persistProfilesCalls int
}

// NewDurableStoreSpy creates an empty spy; all loads return empty
// collections until something is seeded or persisted.
func NewDurableStoreSpy() *DurableStoreSpy {
	return &DurableStoreSpy{}
}

// SeedCatalog primes the catalog snapshot returned by LoadCatalog.
func (s *DurableStoreSpy) SeedCatalog(books ...lending.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog = copyBooks(books)
}

// SeedLedger primes the loan record snapshot returned by LoadLedger.
func (s *DurableStoreSpy) SeedLedger(records ...lending.LoanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = copyRecords(records)
}

// SeedProfiles primes the profile snapshot returned by LoadProfiles.
func (s *DurableStoreSpy) SeedProfiles(profiles ...lending.BorrowerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = copyProfiles(profiles)
}

// FailLoadCatalog makes LoadCatalog return the given error.
func (s *DurableStoreSpy) FailLoadCatalog(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadCatalogErr = err
}

// FailLoadLedger makes LoadLedger return the given error.
func (s *DurableStoreSpy) FailLoadLedger(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLedgerErr = err
}

// FailLoadProfiles makes LoadProfiles return the given error.
func (s *DurableStoreSpy) FailLoadProfiles(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadProfilesErr = err
}

// FailPersistCatalog makes PersistCatalog fail with the given error until
// reset with nil. Failed persists still count, but do not overwrite the
// stored snapshot.
func (s *DurableStoreSpy) FailPersistCatalog(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persistCatalogErr = err
}

// FailPersistLedger makes PersistLedger fail with the given error until
// reset with nil.
func (s *DurableStoreSpy) FailPersistLedger(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persistLedgerErr = err
}

// FailPersistProfiles makes PersistProfiles fail with the given error until
// reset with nil.
func (s *DurableStoreSpy) FailPersistProfiles(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persistProfilesErr = err
}

// LoadCatalog implements lending.DurableStore.
func (s *DurableStoreSpy) LoadCatalog(_ context.Context) ([]lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadCatalogErr != nil {
		return nil, s.loadCatalogErr
	}

	return copyBooks(s.catalog), nil
}

// PersistCatalog implements lending.DurableStore.
func (s *DurableStoreSpy) PersistCatalog(_ context.Context, books []lending.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persistCatalogCalls++

	if s.persistCatalogErr != nil {
		return s.persistCatalogErr
	}

	s.catalog = copyBooks(books)

	return nil
}

// LoadLedger implements lending.DurableStore.
func (s *DurableStoreSpy) LoadLedger(_ context.Context) ([]lending.LoanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadLedgerErr != nil {
		return nil, s.loadLedgerErr
	}

	return copyRecords(s.records), nil
}

// PersistLedger implements lending.DurableStore.
func (s *DurableStoreSpy) PersistLedger(_ context.Context, records []lending.LoanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persistLedgerCalls++

	if s.persistLedgerErr != nil {
		return s.persistLedgerErr
	}

	s.records = copyRecords(records)

	return nil
}

// LoadProfiles implements lending.DurableStore.
func (s *DurableStoreSpy) LoadProfiles(_ context.Context) ([]lending.BorrowerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadProfilesErr != nil {
		return nil, s.loadProfilesErr
	}

	return copyProfiles(s.profiles), nil
}

// PersistProfiles implements lending.DurableStore.
func (s *DurableStoreSpy) PersistProfiles(_ context.Context, profiles []lending.BorrowerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persistProfilesCalls++

	if s.persistProfilesErr != nil {
		return s.persistProfilesErr
	}

	s.profiles = copyProfiles(profiles)

	return nil
}

// StoredCatalog returns a copy of the last successfully persisted catalog.
func (s *DurableStoreSpy) StoredCatalog() []lending.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyBooks(s.catalog)
}

// StoredLedger returns a copy of the last successfully persisted records.
func (s *DurableStoreSpy) StoredLedger() []lending.LoanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyRecords(s.records)
}

// StoredProfiles returns a copy of the last successfully persisted profiles.
func (s *DurableStoreSpy) StoredProfiles() []lending.BorrowerProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyProfiles(s.profiles)
}

// PersistCatalogCalls returns how often PersistCatalog was called,
// failed calls included.
func (s *DurableStoreSpy) PersistCatalogCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persistCatalogCalls
}

// PersistLedgerCalls returns how often PersistLedger was called,
// failed calls included.
func (s *DurableStoreSpy) PersistLedgerCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persistLedgerCalls
}

// PersistProfilesCalls returns how often PersistProfiles was called,
// failed calls included.
func (s *DurableStoreSpy) PersistProfilesCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persistProfilesCalls
}

func copyBooks(books []lending.Book) []lending.Book {
	out := make([]lending.Book, len(books))
	copy(out, books)

	return out
}

func copyRecords(records []lending.LoanRecord) []lending.LoanRecord {
	out := make([]lending.LoanRecord, len(records))
	copy(out, records)

	return out
}

func copyProfiles(profiles []lending.BorrowerProfile) []lending.BorrowerProfile {
	out := make([]lending.BorrowerProfile, len(profiles))
	copy(out, profiles)

	return out
}
