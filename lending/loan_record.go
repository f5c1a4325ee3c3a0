package lending

import (
	"sort"
	"time"
)

// LoanRecord is one transaction in the append-only ledger. A record is
// created by Issue and mutated exactly once by Return; it is never deleted,
// so closed records stay visible to history projections and to fine audits.
type LoanRecord struct {
	ID         RecordID   `json:"id"`
	BookID     BookID     `json:"book_id"`
	BorrowerID BorrowerID `json:"borrower_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Returned   bool       `json:"returned"`
}

// Active reports whether the loan is still open.
func (r LoanRecord) Active() bool {
	return !r.Returned
}

// clone returns a value copy with its own ReturnedAt pointer.
func (r *LoanRecord) clone() LoanRecord {
	out := *r
	if r.ReturnedAt != nil {
		at := *r.ReturnedAt
		out.ReturnedAt = &at
	}

	return out
}

// sortRecords orders records by issue time ascending, ties by record id
// ascending, so listings are fully deterministic.
func sortRecords(records []LoanRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].IssuedAt.Equal(records[j].IssuedAt) {
			return records[i].IssuedAt.Before(records[j].IssuedAt)
		}

		return records[i].ID < records[j].ID
	})
}
