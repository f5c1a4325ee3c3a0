package lending

import (
	"sort"
	"time"
)

// DueNotice is one open loan as seen from the due-date feed: identifiers,
// the due math relative to some instant, and the fine accrued so far.
type DueNotice struct {
	RecordID    RecordID   `json:"record_id"`
	BookID      BookID     `json:"book_id"`
	Title       string     `json:"title"`
	BorrowerID  BorrowerID `json:"borrower_id"`
	IssuedAt    time.Time  `json:"issued_at"`
	DueAt       time.Time  `json:"due_at"`
	DaysLeft    int64      `json:"days_left"`
	Overdue     bool       `json:"overdue"`
	DueSoon     bool       `json:"due_soon"`
	AccruedFine int64      `json:"accrued_fine"`
}

// Feed projects the open loans into due notices as of the given instant.
// An empty borrowerID selects every borrower's loans, the front-desk view;
// otherwise only that borrower's. Notices are ordered by due date
// ascending, ties by record id, so the most urgent loan comes first.
//
// DaysLeft counts whole 24-hour periods and is negative once the loan is
// overdue; within a day of the due date, on either side, it is zero and
// Overdue carries the distinction. DueSoon marks loans not yet overdue
// that fall due within the configured window.
func (l *Ledger) Feed(borrowerID BorrowerID, asOf time.Time) []DueNotice {
	l.mu.RLock()

	out := make([]DueNotice, 0)
	for _, record := range l.records {
		if record.Returned {
			continue
		}

		if borrowerID != "" && record.BorrowerID != borrowerID {
			continue
		}

		title := ""
		if book, ok := l.books[record.BookID]; ok {
			title = book.Title
		}

		daysLeft := daysUntil(record.DueAt, asOf)
		overdue := asOf.After(record.DueAt)

		out = append(out, DueNotice{
			RecordID:    record.ID,
			BookID:      record.BookID,
			Title:       title,
			BorrowerID:  record.BorrowerID,
			IssuedAt:    record.IssuedAt,
			DueAt:       record.DueAt,
			DaysLeft:    daysLeft,
			Overdue:     overdue,
			DueSoon:     !overdue && daysLeft <= int64(l.dueSoonDays),
			AccruedFine: l.finePolicy.Accrued(*record, asOf),
		})
	}

	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}

		return out[i].RecordID < out[j].RecordID
	})

	return out
}
