package lending

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

const (
	logMsgOperation              = "ledger operation: "
	logMsgLoadFailed             = "loading state from durable store failed"
	logMsgStatePersisted         = "ledger state persisted"
	logMsgPersistFailed          = "persisting state failed, in-memory changes rolled back"
	logMsgAvailabilityReconciled = "availability flag reconciled from loan records"
	logMsgStaleFavoriteRetracted = "retracted favorite referencing unknown book"
	logMsgStateLoaded            = "ledger state loaded"

	logAttrError      = "error"
	logAttrBookID     = "book_id"
	logAttrBorrowerID = "borrower_id"
	logAttrRecordID   = "record_id"
	logAttrFine       = "fine"
	logAttrDurationMS = "duration_ms"
	logAttrBookCount  = "book_count"
	logAttrLoanCount  = "loan_count"
	logAttrAvailable  = "available"

	opAddBook          = "add_book"
	opEditBook         = "edit_book"
	opRemoveBook       = "remove_book"
	opAddReview        = "add_review"
	opIssue            = "issue"
	opReturn           = "return"
	opRegisterBorrower = "register_borrower"
	opAddFavorite      = "add_favorite"
	opRemoveFavorite   = "remove_favorite"

	metricOperationDuration = "lending_operation_duration"
	metricOperationErrors   = "lending_operation_errors"
	metricActiveLoans       = "lending_active_loans"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeNotFound     = "not_found"
	errorTypeConflict     = "conflict"
	errorTypeUnauthorized = "unauthorized"
	errorTypePersistence  = "persistence"
	errorTypeValidation   = "validation"
	errorTypeInternal     = "internal"

	defaultDueSoonDays = 3
)

// persistSet selects which collections an operation writes through.
type persistSet uint8

const (
	persistCatalog persistSet = 1 << iota
	persistLedger
	persistProfiles
)

// Ledger is the lending state machine. It owns the catalog, the loan
// records, and the borrower profiles in memory, and writes through to a
// DurableStore after every committed mutation. All methods are safe for
// concurrent use.
type Ledger struct {
	store DurableStore

	mu           sync.RWMutex
	books        map[BookID]*Book
	records      []*LoanRecord
	recordByID   map[RecordID]*LoanRecord
	activeByBook map[BookID]*LoanRecord
	profiles     map[BorrowerID]*BorrowerProfile

	lockRegistry  sync.Mutex
	bookLocks     map[BookID]*sync.Mutex
	borrowerLocks map[BorrowerID]*sync.Mutex

	// persistMu serializes store writes so that the persisted snapshots,
	// captured inside the critical section, stay monotone.
	persistMu sync.Mutex

	logger      Logger
	metrics     MetricsCollector
	clock       func() time.Time
	newRecordID func() RecordID
	loanPeriod  time.Duration
	finePolicy  FinePolicy
	dueSoonDays int
}

// Option defines a functional option for configuring a Ledger.
type Option func(*Ledger) error

// WithLogger sets the logger for the Ledger.
//
// Debug level: durable store write timings (development use)
// Info level: operation outcomes (production-safe)
// Warn level: reconciliation of inconsistent loaded state
// Error level: load and persistence failures.
func WithLogger(logger Logger) Option {
	return func(l *Ledger) error {
		l.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Ledger. The collector
// receives operation durations, typed error counters, and the active loan
// gauge.
func WithMetrics(collector MetricsCollector) Option {
	return func(l *Ledger) error {
		l.metrics = collector
		return nil
	}
}

// WithClock replaces the wall clock used for issue, due, return, review,
// and registration timestamps. Tests inject a fixed clock here.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) error {
		if clock == nil {
			return ErrNilClock
		}

		l.clock = clock

		return nil
	}
}

// WithLoanPeriod sets the default loan duration applied when Issue is
// called with a non-positive period.
func WithLoanPeriod(period time.Duration) Option {
	return func(l *Ledger) error {
		if period <= 0 {
			return ErrNonPositiveLoanPeriod
		}

		l.loanPeriod = period

		return nil
	}
}

// WithFinePerDay sets the amount charged per whole day overdue. The default
// is zero, which disables fines.
func WithFinePerDay(amount int64) Option {
	return func(l *Ledger) error {
		if amount < 0 {
			return ErrNegativeFinePerDay
		}

		l.finePolicy = FinePolicy{PerDay: amount}

		return nil
	}
}

// WithDueSoonWindow sets how many days before the due time a loan shows up
// as due soon in the notification feed.
func WithDueSoonWindow(days int) Option {
	return func(l *Ledger) error {
		if days < 0 {
			return ErrNegativeDueSoonWindow
		}

		l.dueSoonDays = days

		return nil
	}
}

// NewLedger creates a Ledger backed by store, loads all three collections,
// and reconciles derived state: availability is recomputed from the active
// records, favorites referencing unknown books are retracted, and a loaded
// state with two open loans for one book fails with ErrLedgerCorrupted.
func NewLedger(ctx context.Context, store DurableStore, options ...Option) (*Ledger, error) {
	if store == nil {
		return nil, ErrNilDurableStore
	}

	l := &Ledger{
		store:         store,
		books:         make(map[BookID]*Book),
		recordByID:    make(map[RecordID]*LoanRecord),
		activeByBook:  make(map[BookID]*LoanRecord),
		profiles:      make(map[BorrowerID]*BorrowerProfile),
		bookLocks:     make(map[BookID]*sync.Mutex),
		borrowerLocks: make(map[BorrowerID]*sync.Mutex),
		clock:         time.Now,
		newRecordID:   newRecordID,
		loanPeriod:    DefaultLoanPeriod,
		dueSoonDays:   defaultDueSoonDays,
	}

	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}

	if err := l.load(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// load pulls all collections from the store and rebuilds the arena. It never
// writes back; the first successful mutation persists the reconciled state.
func (l *Ledger) load(ctx context.Context) error {
	books, loadCatalogErr := l.store.LoadCatalog(ctx)
	if loadCatalogErr != nil {
		l.logError(logMsgLoadFailed, loadCatalogErr)
		return errors.Join(ErrPersistenceFailure, loadCatalogErr)
	}

	records, loadLedgerErr := l.store.LoadLedger(ctx)
	if loadLedgerErr != nil {
		l.logError(logMsgLoadFailed, loadLedgerErr)
		return errors.Join(ErrPersistenceFailure, loadLedgerErr)
	}

	profiles, loadProfilesErr := l.store.LoadProfiles(ctx)
	if loadProfilesErr != nil {
		l.logError(logMsgLoadFailed, loadProfilesErr)
		return errors.Join(ErrPersistenceFailure, loadProfilesErr)
	}

	if err := l.rebuildCatalog(books); err != nil {
		return err
	}

	if err := l.rebuildLedger(records); err != nil {
		return err
	}

	if err := l.rebuildProfiles(profiles); err != nil {
		return err
	}

	l.reconcileAvailability()
	l.retractStaleFavorites()

	l.logOperation(
		logMsgStateLoaded,
		logAttrBookCount, len(l.books),
		logAttrLoanCount, len(l.records),
	)
	l.recordActiveLoansGauge()

	return nil
}

func (l *Ledger) rebuildCatalog(books []Book) error {
	for i := range books {
		book := books[i].clone()
		if book.ID == "" {
			return errors.Join(ErrLedgerCorrupted, fmt.Errorf("book without id in loaded catalog"))
		}

		if _, dup := l.books[book.ID]; dup {
			return errors.Join(ErrLedgerCorrupted, fmt.Errorf("duplicate book id %q in loaded catalog", book.ID))
		}

		l.books[book.ID] = &book
	}

	return nil
}

func (l *Ledger) rebuildLedger(records []LoanRecord) error {
	for i := range records {
		record := records[i].clone()
		if record.ID == "" {
			return errors.Join(ErrLedgerCorrupted, fmt.Errorf("loan record without id in loaded ledger"))
		}

		if _, dup := l.recordByID[record.ID]; dup {
			return errors.Join(ErrLedgerCorrupted, fmt.Errorf("duplicate loan record id %q in loaded ledger", record.ID))
		}

		l.records = append(l.records, &record)
		l.recordByID[record.ID] = &record

		if record.Returned {
			continue
		}

		// Open records constrain the catalog: the book must still exist and
		// must not already carry another open record.
		if _, ok := l.books[record.BookID]; !ok {
			return errors.Join(ErrLedgerCorrupted, fmt.Errorf("open loan %q references unknown book %q", record.ID, record.BookID))
		}

		if other, ok := l.activeByBook[record.BookID]; ok {
			return errors.Join(ErrLedgerCorrupted,
				fmt.Errorf("book %q has two open loans, %q and %q", record.BookID, other.ID, record.ID))
		}

		l.activeByBook[record.BookID] = &record
	}

	return nil
}

func (l *Ledger) rebuildProfiles(profiles []BorrowerProfile) error {
	for i := range profiles {
		profile := profiles[i].clone()
		if profile.ID == "" {
			return errors.Join(ErrLedgerCorrupted, fmt.Errorf("profile without id in loaded profiles"))
		}

		if _, dup := l.profiles[profile.ID]; dup {
			return errors.Join(ErrLedgerCorrupted, fmt.Errorf("duplicate borrower id %q in loaded profiles", profile.ID))
		}

		l.profiles[profile.ID] = &profile
	}

	return nil
}

// reconcileAvailability derives every availability flag from the open
// records. The flag is derived state; the records win over whatever the
// store returned.
func (l *Ledger) reconcileAvailability() {
	for id, book := range l.books {
		_, onLoan := l.activeByBook[id]
		if book.Available == !onLoan {
			continue
		}

		book.Available = !onLoan
		l.logWarn(logMsgAvailabilityReconciled, logAttrBookID, id, logAttrAvailable, book.Available)
	}
}

// retractStaleFavorites drops favorites whose book no longer exists, so the
// deletion guard holds across restarts even when an older writer left them
// behind.
func (l *Ledger) retractStaleFavorites() {
	for _, profile := range l.profiles {
		kept := profile.Favorites[:0]
		for _, bookID := range profile.Favorites {
			if _, ok := l.books[bookID]; ok {
				kept = append(kept, bookID)
				continue
			}

			l.logWarn(logMsgStaleFavoriteRetracted, logAttrBorrowerID, profile.ID, logAttrBookID, bookID)
		}

		profile.Favorites = kept
	}
}

// bookLock returns the mutex serializing all mutating operations on one
// book, creating it on first use. Locks are never removed; the registry
// grows with the catalog, not with traffic.
func (l *Ledger) bookLock(id BookID) *sync.Mutex {
	l.lockRegistry.Lock()
	defer l.lockRegistry.Unlock()

	lock, ok := l.bookLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.bookLocks[id] = lock
	}

	return lock
}

// borrowerLock returns the mutex serializing profile mutations for one
// borrower.
func (l *Ledger) borrowerLock(id BorrowerID) *sync.Mutex {
	l.lockRegistry.Lock()
	defer l.lockRegistry.Unlock()

	lock, ok := l.borrowerLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.borrowerLocks[id] = lock
	}

	return lock
}

// persistAfterCommit writes the selected collections through to the store.
// On failure it applies undo under the state lock so readers never observe
// a change the caller is about to report as failed, then returns the cause
// joined with ErrPersistenceFailure.
func (l *Ledger) persistAfterCommit(ctx context.Context, set persistSet, undo func()) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	start := time.Now()
	persistErr := l.runPersists(ctx, set)
	if persistErr == nil {
		l.logDebug(logMsgStatePersisted, logAttrDurationMS, durationToMilliseconds(time.Since(start)))
		return nil
	}

	l.mu.Lock()
	undo()
	l.mu.Unlock()

	l.logError(logMsgPersistFailed, persistErr)

	return errors.Join(ErrPersistenceFailure, persistErr)
}

// runPersists writes the ledger before the catalog before the profiles, so
// a failure part way leaves the store with records ahead of flags, which
// load reconciliation repairs.
func (l *Ledger) runPersists(ctx context.Context, set persistSet) error {
	if set&persistLedger != 0 {
		if err := l.store.PersistLedger(ctx, l.snapshotRecords()); err != nil {
			return err
		}
	}

	if set&persistCatalog != 0 {
		if err := l.store.PersistCatalog(ctx, l.snapshotBooks()); err != nil {
			return err
		}
	}

	if set&persistProfiles != 0 {
		if err := l.store.PersistProfiles(ctx, l.snapshotProfiles()); err != nil {
			return err
		}
	}

	return nil
}

// snapshotBooks returns the catalog as values ordered by id.
func (l *Ledger) snapshotBooks() []Book {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Book, 0, len(l.books))
	for _, book := range l.books {
		out = append(out, book.clone())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// snapshotRecords returns the ledger as values in append order.
func (l *Ledger) snapshotRecords() []LoanRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LoanRecord, 0, len(l.records))
	for _, record := range l.records {
		out = append(out, record.clone())
	}

	return out
}

// snapshotProfiles returns the profiles as values ordered by id.
func (l *Ledger) snapshotProfiles() []BorrowerProfile {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]BorrowerProfile, 0, len(l.profiles))
	for _, profile := range l.profiles {
		out = append(out, profile.clone())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// logOperation logs operational information at info level if the logger is
// configured.
func (l *Ledger) logOperation(action string, args ...any) {
	if l.logger != nil {
		l.logger.Info(logMsgOperation+action, args...)
	}
}

// logDebug logs developer detail if the logger is configured.
func (l *Ledger) logDebug(message string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(message, args...)
	}
}

// logWarn logs a warning if the logger is configured.
func (l *Ledger) logWarn(message string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(message, args...)
	}
}

// logError logs error information at the error level if the logger is
// configured.
func (l *Ledger) logError(message string, err error, args ...any) {
	if l.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		l.logger.Error(message, allArgs...)
	}
}

// finishOperation records the duration and, on failure, the typed error
// counter for one operation if the metrics collector is configured.
func (l *Ledger) finishOperation(operation string, start time.Time, err error) {
	if l.metrics == nil {
		return
	}

	status := statusSuccess
	if err != nil {
		status = statusError
		l.metrics.IncrementCounter(metricOperationErrors, map[string]string{
			labelOperation: operation,
			labelErrorType: errorTypeOf(err),
		})
	}

	l.metrics.RecordDuration(metricOperationDuration, time.Since(start), map[string]string{
		labelOperation: operation,
		labelStatus:    status,
	})
}

// recordActiveLoansGauge publishes the number of open loans if the metrics
// collector is configured.
func (l *Ledger) recordActiveLoansGauge() {
	if l.metrics == nil {
		return
	}

	l.mu.RLock()
	active := len(l.activeByBook)
	l.mu.RUnlock()

	l.metrics.RecordValue(metricActiveLoans, float64(active), nil)
}

// durationToMilliseconds converts a duration to float64 milliseconds with 3
// decimal places for log attributes.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// errorTypeOf maps an error to its taxonomy label for metrics.
func errorTypeOf(err error) string {
	switch {
	case IsPersistenceFailure(err):
		return errorTypePersistence
	case IsNotFound(err):
		return errorTypeNotFound
	case IsConflict(err):
		return errorTypeConflict
	case IsUnauthorized(err):
		return errorTypeUnauthorized
	case isValidation(err):
		return errorTypeValidation
	default:
		return errorTypeInternal
	}
}

func isValidation(err error) bool {
	return errors.Is(err, ErrMissingTitle) ||
		errors.Is(err, ErrMissingAuthor) ||
		errors.Is(err, ErrMissingBorrowerID) ||
		errors.Is(err, ErrInvalidRating) ||
		errors.Is(err, ErrNilDurableStore) ||
		errors.Is(err, ErrNilClock) ||
		errors.Is(err, ErrNonPositiveLoanPeriod) ||
		errors.Is(err, ErrNegativeFinePerDay) ||
		errors.Is(err, ErrNegativeDueSoonWindow) ||
		errors.Is(err, ErrNilDatabaseConnection) ||
		errors.Is(err, ErrEmptyTableName) ||
		errors.Is(err, ErrEmptyDataDirectory) ||
		errors.Is(err, ErrEmptyDatabasePath)
}
