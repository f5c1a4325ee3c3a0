package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
)

func newRecordID() RecordID {
	return uuid.NewString()
}

// Issue opens a loan: it creates a record with the due time set loanPeriod
// after now, flips the book to unavailable, and increments the times-issued
// counter, all atomically with respect to concurrent calls on the same
// book. A non-positive loanPeriod uses the configured default.
func (l *Ledger) Issue(ctx context.Context, bookID BookID, borrowerID BorrowerID, loanPeriod time.Duration) (LoanRecord, error) {
	start := time.Now()

	record, err := l.issue(ctx, bookID, borrowerID, loanPeriod)
	l.finishOperation(opIssue, start, err)

	if err == nil {
		l.recordActiveLoansGauge()
	}

	return record, err
}

func (l *Ledger) issue(ctx context.Context, bookID BookID, borrowerID BorrowerID, loanPeriod time.Duration) (LoanRecord, error) {
	if borrowerID == "" {
		return LoanRecord{}, ErrMissingBorrowerID
	}

	lock := l.bookLock(bookID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	book, ok := l.books[bookID]
	if !ok {
		l.mu.Unlock()
		return LoanRecord{}, ErrBookNotFound
	}

	if !book.Available {
		l.mu.Unlock()
		return LoanRecord{}, ErrNotAvailable
	}

	period := loanPeriod
	if period <= 0 {
		period = l.loanPeriod
	}

	now := l.clock()
	record := &LoanRecord{
		ID:         l.newRecordID(),
		BookID:     bookID,
		BorrowerID: borrowerID,
		IssuedAt:   now,
		DueAt:      now.Add(period),
	}
	l.records = append(l.records, record)
	l.recordByID[record.ID] = record
	l.activeByBook[bookID] = record
	book.Available = false
	book.TimesIssued++
	issued := record.clone()
	l.mu.Unlock()

	undo := func() {
		delete(l.recordByID, record.ID)
		delete(l.activeByBook, bookID)
		l.records = dropRecord(l.records, record.ID)
		book.Available = true
		book.TimesIssued--
	}
	if err := l.persistAfterCommit(ctx, persistLedger|persistCatalog, undo); err != nil {
		return LoanRecord{}, err
	}

	l.logOperation(opIssue,
		logAttrBookID, bookID,
		logAttrBorrowerID, borrowerID,
		logAttrRecordID, issued.ID,
	)

	return issued, nil
}

// Return closes the active loan on bookID and reports the accrued fine. A
// non-empty borrowerID must match the active record's borrower
// (self-service return); the empty string skips that check (front-desk
// return). The record is marked returned, never deleted.
func (l *Ledger) Return(ctx context.Context, bookID BookID, borrowerID BorrowerID) (int64, error) {
	start := time.Now()

	fine, err := l.returnBook(ctx, bookID, borrowerID)
	l.finishOperation(opReturn, start, err)

	if err == nil {
		l.recordActiveLoansGauge()
	}

	return fine, err
}

func (l *Ledger) returnBook(ctx context.Context, bookID BookID, borrowerID BorrowerID) (int64, error) {
	lock := l.bookLock(bookID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	book, ok := l.books[bookID]
	if !ok {
		l.mu.Unlock()
		return 0, ErrBookNotFound
	}

	record, ok := l.activeByBook[bookID]
	if !ok {
		l.mu.Unlock()
		return 0, ErrNoActiveLoan
	}

	if borrowerID != "" && record.BorrowerID != borrowerID {
		l.mu.Unlock()
		return 0, ErrNotBorrower
	}

	returnedAt := l.clock()
	record.ReturnedAt = &returnedAt
	record.Returned = true
	delete(l.activeByBook, bookID)
	book.Available = true
	fine := l.finePolicy.Accrued(*record, returnedAt)
	l.mu.Unlock()

	undo := func() {
		record.ReturnedAt = nil
		record.Returned = false
		l.activeByBook[bookID] = record
		book.Available = false
	}
	if err := l.persistAfterCommit(ctx, persistLedger|persistCatalog, undo); err != nil {
		return 0, err
	}

	l.logOperation(opReturn,
		logAttrBookID, bookID,
		logAttrRecordID, record.ID,
		logAttrFine, fine,
	)

	return fine, nil
}

// Record returns a copy of one loan record by id, open or closed.
func (l *Ledger) Record(id RecordID) (LoanRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	record, ok := l.recordByID[id]
	if !ok {
		return LoanRecord{}, ErrRecordNotFound
	}

	return record.clone(), nil
}

// CurrentFine returns the fine record would accrue as of the given instant,
// using the configured fine policy. It is a pure projection: the same
// arguments always yield the same value, and for a loan returned at time T
// it equals the fine Return reported.
func (l *Ledger) CurrentFine(record LoanRecord, asOf time.Time) int64 {
	return l.finePolicy.Accrued(record, asOf)
}

// ActiveLoansFor returns the borrower's open loans, ordered by issue time
// ascending with ties by record id.
func (l *Ledger) ActiveLoansFor(borrowerID BorrowerID) []LoanRecord {
	return l.loansFor(borrowerID, true)
}

// AllLoansFor returns every loan ever made to the borrower, open or closed,
// ordered by issue time ascending with ties by record id.
func (l *Ledger) AllLoansFor(borrowerID BorrowerID) []LoanRecord {
	return l.loansFor(borrowerID, false)
}

func (l *Ledger) loansFor(borrowerID BorrowerID, activeOnly bool) []LoanRecord {
	l.mu.RLock()
	out := make([]LoanRecord, 0)
	for _, record := range l.records {
		if record.BorrowerID != borrowerID {
			continue
		}

		if activeOnly && record.Returned {
			continue
		}

		out = append(out, record.clone())
	}
	l.mu.RUnlock()

	sortRecords(out)

	return out
}

// AllLoans returns the whole ledger in append order, the audit view.
func (l *Ledger) AllLoans() []LoanRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LoanRecord, 0, len(l.records))
	for _, record := range l.records {
		out = append(out, record.clone())
	}

	return out
}

// dropRecord removes the record with the given id, searching from the end
// since rollbacks always target the most recent append.
func dropRecord(records []*LoanRecord, id RecordID) []*LoanRecord {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ID == id {
			return append(records[:i], records[i+1:]...)
		}
	}

	return records
}
