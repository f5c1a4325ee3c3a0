package lending_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/lending-ledger-go/lending"
	"github.com/openshelf/lending-ledger-go/testutil/lending/fixtures"
)

func Test_FinePolicy_Accrued_ShouldChargeOnly_ForWholeDaysLate(t *testing.T) {
	// arrange
	policy := lending.FinePolicy{PerDay: 10}
	record := fixtures.BuildLoanRecord("record-1", "book-1", "reader-1", fixtures.BaseTime)

	testCases := []struct {
		name     string
		asOf     time.Time
		expected int64
	}{
		{
			name:     "one hour before the due time",
			asOf:     record.DueAt.Add(-time.Hour),
			expected: 0,
		},
		{
			name:     "exactly at the due time",
			asOf:     record.DueAt,
			expected: 0,
		},
		{
			name:     "twenty-three hours late",
			asOf:     record.DueAt.Add(23 * time.Hour),
			expected: 0,
		},
		{
			name:     "exactly one day late",
			asOf:     record.DueAt.Add(24 * time.Hour),
			expected: 10,
		},
		{
			name:     "six days late",
			asOf:     record.DueAt.Add(6 * 24 * time.Hour),
			expected: 60,
		},
		{
			name:     "six and a half days late",
			asOf:     record.DueAt.Add(6*24*time.Hour + 12*time.Hour),
			expected: 60,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			fine := policy.Accrued(record, tc.asOf)

			// assert
			assert.Equal(t, tc.expected, fine)
		})
	}
}

func Test_FinePolicy_Accrued_ShouldFreezeTheFine_AtTheReturnTime(t *testing.T) {
	// arrange
	policy := lending.FinePolicy{PerDay: 10}
	issuedAt := fixtures.BaseTime
	returnedAt := issuedAt.Add(20 * 24 * time.Hour) // six days past the two-week due time
	record := fixtures.BuildReturnedLoanRecord("record-1", "book-1", "reader-1", issuedAt, returnedAt)

	// act
	atReturn := policy.Accrued(record, returnedAt)
	aYearLater := policy.Accrued(record, returnedAt.Add(365*24*time.Hour))

	// assert
	assert.Equal(t, int64(60), atReturn)
	assert.Equal(t, int64(60), aYearLater, "the fine of a returned loan must not drift")
}

func Test_FinePolicy_Accrued_ShouldChargeNothing_ForATimelyReturn(t *testing.T) {
	// arrange
	policy := lending.FinePolicy{PerDay: 10}
	issuedAt := fixtures.BaseTime
	returnedAt := issuedAt.Add(13 * 24 * time.Hour)
	record := fixtures.BuildReturnedLoanRecord("record-1", "book-1", "reader-1", issuedAt, returnedAt)

	// act
	fine := policy.Accrued(record, returnedAt.Add(30*24*time.Hour))

	// assert
	assert.Equal(t, int64(0), fine)
}

func Test_FinePolicy_Accrued_ShouldChargeNothing_WhenFinesAreDisabled(t *testing.T) {
	// arrange
	policy := lending.FinePolicy{}
	record := fixtures.BuildLoanRecord("record-1", "book-1", "reader-1", fixtures.BaseTime)

	// act
	fine := policy.Accrued(record, record.DueAt.Add(90*24*time.Hour))

	// assert
	assert.Equal(t, int64(0), fine)
}

func Test_DaysLate_ShouldCountWholeDays_AndClampAtZero(t *testing.T) {
	// arrange
	record := fixtures.BuildLoanRecord("record-1", "book-1", "reader-1", fixtures.BaseTime)

	testCases := []struct {
		name     string
		asOf     time.Time
		expected int64
	}{
		{
			name:     "well before the due time",
			asOf:     record.IssuedAt,
			expected: 0,
		},
		{
			name:     "thirty-six hours late",
			asOf:     record.DueAt.Add(36 * time.Hour),
			expected: 1,
		},
		{
			name:     "ten days late",
			asOf:     record.DueAt.Add(10 * 24 * time.Hour),
			expected: 10,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			daysLate := lending.DaysLate(record, tc.asOf)

			// assert
			assert.Equal(t, tc.expected, daysLate)
		})
	}
}

func Test_DaysLate_ShouldUseTheReturnTime_ForClosedRecords(t *testing.T) {
	// arrange
	issuedAt := fixtures.BaseTime
	returnedAt := issuedAt.Add(16 * 24 * time.Hour)
	record := fixtures.BuildReturnedLoanRecord("record-1", "book-1", "reader-1", issuedAt, returnedAt)

	// act
	daysLate := lending.DaysLate(record, returnedAt.Add(100*24*time.Hour))

	// assert
	assert.Equal(t, int64(2), daysLate)
}
