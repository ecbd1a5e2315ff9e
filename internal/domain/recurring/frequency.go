package recurring

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a template fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// DateLayout is the textual calendar-date form used by the API, the CLI and the stores.
const DateLayout = "2006-01-02"

// Monthly-equivalent multipliers used by EstimateMonthlyTotals. A weekly
// amount is scaled by 365.25/12/7 (about 4.348) weeks per month.
var (
	dailyPerMonth = decimal.NewFromInt(30)
	daysPerYear   = decimal.RequireFromString("365.25")
	monthsPerYear = decimal.NewFromInt(12)
	daysPerWeek   = decimal.NewFromInt(7)
)

// IsValid reports whether f is one of the supported frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// ParseFrequency converts a raw value into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

// ToDate drops the time-of-day and location of t, keeping its calendar date.
func ToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NextOccurrence returns the occurrence that follows date for the given frequency.
//
// Monthly and yearly steps keep the day of month when the target month has it
// and otherwise clamp to the target month's last day, so Jan 31 is followed by
// Feb 28 (or 29) and Feb 29 by Feb 28 of the next year.
func NextOccurrence(date time.Time, f Frequency) (time.Time, error) {
	date = ToDate(date)

	switch f {
	case FrequencyDaily:
		return date.AddDate(0, 0, 1), nil
	case FrequencyWeekly:
		return date.AddDate(0, 0, 7), nil
	case FrequencyMonthly:
		return addMonthsClamped(date, 1), nil
	case FrequencyYearly:
		return addMonthsClamped(date, 12), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
	}
}

// FirstOnOrAfter steps from anchor by f until the occurrence is not before floor.
func FirstOnOrAfter(anchor time.Time, f Frequency, floor time.Time) (time.Time, error) {
	current := ToDate(anchor)
	floor = ToDate(floor)

	for current.Before(floor) {
		next, err := NextOccurrence(current, f)
		if err != nil {
			return time.Time{}, err
		}
		current = next
	}
	return current, nil
}

// MonthlyEquivalent normalizes amount charged at frequency f to a per-month
// figure. The weekly result carries the decimal package's division precision;
// callers round for display.
func MonthlyEquivalent(amount decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	switch f {
	case FrequencyDaily:
		return amount.Mul(dailyPerMonth), nil
	case FrequencyWeekly:
		return amount.Mul(daysPerYear).Div(monthsPerYear.Mul(daysPerWeek)), nil
	case FrequencyMonthly:
		return amount, nil
	case FrequencyYearly:
		return amount.Div(monthsPerYear), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
	}
}

func addMonthsClamped(date time.Time, months int) time.Time {
	y, m, d := date.Date()

	// Day 1 never overflows, so this lands in the target month.
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
