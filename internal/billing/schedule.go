// Package billing holds the rules that turn leases and meter readings into
// bills: the monthly schedule, utility pricing, and effective status. The
// functions here are pure; persistence and locking belong to the caller.
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/types"
)

// DefaultDueDay is the day of month on which a period's bill falls due.
const DefaultDueDay = 15

// ScheduleOptions tunes bill schedule generation.
type ScheduleOptions struct {
	// DueDay is the nominal day of month bills fall due. Zero means DefaultDueDay.
	DueDay int
}

func (o ScheduleOptions) dueDay() int {
	if o.DueDay <= 0 {
		return DefaultDueDay
	}
	return o.DueDay
}

// LeaseTerms is the part of a lease the schedule depends on.
type LeaseTerms struct {
	StartDate  types.Date
	EndDate    types.Date
	RentAmount decimal.Decimal
}

// BillDraft is a bill that has not been persisted yet.
type BillDraft struct {
	Period      string
	RentFee     decimal.Decimal
	WaterFee    decimal.Decimal
	ElecFee     decimal.Decimal
	TotalAmount decimal.Decimal
	Status      types.BillStatus
	DueDate     types.Date
}

// Bill converts the draft into a bill owned by leaseID.
func (d BillDraft) Bill(leaseID int64) types.Bill {
	return types.Bill{
		LeaseID:     leaseID,
		Period:      d.Period,
		RentFee:     d.RentFee,
		WaterFee:    d.WaterFee,
		ElecFee:     d.ElecFee,
		TotalAmount: d.TotalAmount,
		Status:      d.Status,
		DueDate:     d.DueDate,
	}
}

// MonthSpan returns the number of whole calendar months between start and
// end. A month counts once start advanced by it, with the day clamped to the
// month's length, has not passed end: 2024-01-31 to 2024-02-29 spans one
// month, 2024-01-20 to 2024-03-10 spans one.
func MonthSpan(start, end types.Date) int {
	months := (end.Year-start.Year)*12 + int(end.Month) - int(start.Month)
	switch {
	case months > 0 && start.AddMonths(months).After(end):
		months--
	case months < 0 && start.AddMonths(months).Before(end):
		months++
	}
	return months
}

// FormatPeriod returns the "YYYY-MM" label of a billing period.
func FormatPeriod(year int, month time.Month) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// GenerateSchedule produces one pending draft per month of the lease term,
// starting with the start date's month. A period whose nominal due date is
// already behind today is due on the due day of the following month instead.
// A term shorter than one month yields no drafts.
func GenerateSchedule(terms LeaseTerms, today types.Date, opts ScheduleOptions) []BillDraft {
	total := MonthSpan(terms.StartDate, terms.EndDate)
	if total <= 0 {
		return nil
	}

	day := opts.dueDay()
	drafts := make([]BillDraft, 0, total)
	year, month := terms.StartDate.Year, terms.StartDate.Month
	for i := 0; i < total; i++ {
		due := types.Date{Year: year, Month: month, Day: day}
		if due.Before(today) {
			ny, nm := nextMonth(year, month)
			due = types.Date{Year: ny, Month: nm, Day: day}
		}

		drafts = append(drafts, BillDraft{
			Period:      FormatPeriod(year, month),
			RentFee:     terms.RentAmount,
			WaterFee:    decimal.Zero,
			ElecFee:     decimal.Zero,
			TotalAmount: terms.RentAmount,
			Status:      types.BillPending,
			DueDate:     due,
		})

		year, month = nextMonth(year, month)
	}
	return drafts
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}
