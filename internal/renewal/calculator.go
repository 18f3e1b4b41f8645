package renewal

import (
	"errors"
	"fmt"
	"time"

	"github.com/dromara/carbon/v2"
)

// ErrInvalidAnniversary is returned when an anniversary month/day pair does not
// name a real calendar date, even after the Feb 29 correction.
var ErrInvalidAnniversary = errors.New("invalid anniversary date")

// Clock supplies the current instant. Production code uses SystemClock; tests
// pin it with FixedClock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always reports t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Calculator computes subscription renewal dates from anniversary fields.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	clock Clock
}

// NewCalculator returns a Calculator reading "today" from clock.
// A nil clock falls back to SystemClock.
func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = SystemClock
	}
	return &Calculator{clock: clock}
}

// Now returns the calculator's current instant in UTC.
func (c *Calculator) Now() time.Time {
	return c.clock.Now().UTC()
}

// today returns the current UTC year, month and day, read once.
func (c *Calculator) today() (int, int, int) {
	now := c.Now()
	return now.Year(), int(now.Month()), now.Day()
}

// RenewalYear returns the year in which the next renewal on month/day occurs.
// A subscription created today on its own anniversary renews next year.
func (c *Calculator) RenewalYear(month, day, creationYear int) int {
	year, curMonth, curDay := c.today()
	return resolveYear(year, curMonth, curDay, month, day, creationYear)
}

func resolveYear(year, curMonth, curDay, month, day, creationYear int) int {
	switch {
	case curMonth == month && curDay == day && year == creationYear:
		return year + 1
	case curMonth == month && curDay == day:
		return year
	case curMonth == month && curDay > day:
		return year + 1
	case curMonth == month && curDay < day:
		return year
	case curMonth > month:
		return year + 1
	default:
		return year
	}
}

// NextRenewal returns the next renewal instant for the anniversary, keeping the
// creation timestamp's time of day. Feb 29 anniversaries fall on Feb 28 in
// non-leap years.
func (c *Calculator) NextRenewal(month, day int, created time.Time) (time.Time, error) {
	created = created.UTC()
	year := c.RenewalYear(month, day, created.Year())

	if month == 2 && day == 29 && !IsLeapYear(year) {
		day = 28
	}

	next := time.Date(year, time.Month(month), day, created.Hour(), created.Minute(), created.Second(), 0, time.UTC)
	if int(next.Month()) != month || next.Day() != day {
		return time.Time{}, fmt.Errorf("%w: month %d day %d", ErrInvalidAnniversary, month, day)
	}
	return next, nil
}

// RenewalDate formats the next renewal as M/D/YYYY without zero padding.
func (c *Calculator) RenewalDate(month, day int, created time.Time) (string, error) {
	next, err := c.NextRenewal(month, day, created)
	if err != nil {
		return "", err
	}
	return FormatDate(next), nil
}

// FormatDate renders t as M/D/YYYY.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}

// IsLeapYear applies the Gregorian leap year rule.
func IsLeapYear(year int) bool {
	return carbon.CreateFromDate(year, 1, 1, carbon.UTC).IsLeapYear()
}

// ValidAnniversary reports whether month/day exists in at least a leap year.
func ValidAnniversary(month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	return day <= DaysInMonth(2000, month)
}

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(year, month int) int {
	return carbon.CreateFromDate(year, month, 1, carbon.UTC).DaysInMonth()
}

// DaysUntil counts whole calendar days from from to to, both taken in UTC.
// The result is negative when to lies before from.
func DaysUntil(from, to time.Time) int {
	start := carbon.CreateFromStdTime(from.UTC(), carbon.UTC).StartOfDay()
	end := carbon.CreateFromStdTime(to.UTC(), carbon.UTC).StartOfDay()
	return int(start.DiffInDays(end))
}
