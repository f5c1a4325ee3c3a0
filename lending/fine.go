package lending

import (
	"time"
)

// DefaultLoanPeriod is the loan duration used when Issue is called without
// an explicit period and no other default was configured.
const DefaultLoanPeriod = 14 * 24 * time.Hour

const day = 24 * time.Hour

// FinePolicy computes overdue fines. PerDay is the amount charged for each
// whole 24-hour period past the due time; amounts are plain integers in the
// smallest currency unit, payments themselves are out of scope.
type FinePolicy struct {
	PerDay int64
}

// Accrued returns the fine for record as of the given instant. For returned
// records the fine is frozen at the return time regardless of asOf, so the
// value Return reported never drifts afterwards. The result is never
// negative.
func (p FinePolicy) Accrued(record LoanRecord, asOf time.Time) int64 {
	end := asOf
	if record.ReturnedAt != nil {
		end = *record.ReturnedAt
	}

	return p.PerDay * lateDays(record.DueAt, end)
}

// DaysLate returns the whole 24-hour periods record is past due as of the
// given instant, zero when on time, using the same clamping as Accrued.
func DaysLate(record LoanRecord, asOf time.Time) int64 {
	end := asOf
	if record.ReturnedAt != nil {
		end = *record.ReturnedAt
	}

	return lateDays(record.DueAt, end)
}

// lateDays counts whole days between due and end, clamped at zero.
func lateDays(due, end time.Time) int64 {
	late := end.Sub(due)
	if late <= 0 {
		return 0
	}

	return int64(late / day)
}

// daysUntil counts whole days from asOf to due; negative when asOf is one or
// more whole days past due.
func daysUntil(due, asOf time.Time) int64 {
	if asOf.Before(due) {
		return int64(due.Sub(asOf) / day)
	}

	return -int64(asOf.Sub(due) / day)
}
