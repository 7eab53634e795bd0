package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ISODate is the storage format for payment dates and deadlines.
const ISODate = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date")

	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseDate accepts only the literal YYYY-MM-DD pattern with all calendar
// fields in range. The returned time is midnight UTC of that civil date.
func ParseDate(s string) (time.Time, error) {
	if !isoDateRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// IsFuture reports whether d is strictly after the current calendar day.
// Used only as a creation-time input guard; ongoing deadline math runs in
// the owner's timezone, not here.
func IsFuture(d, now time.Time) bool {
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return d.After(today)
}

// ComputeDeadline returns the statutory deadline: payment date + 2 years,
// formatted YYYY-MM-DD. Feb 29 clamps to Feb 28 when the target year is
// not a leap year, so the deadline never lands after the anniversary.
func ComputeDeadline(payment time.Time) string {
	y, m, d := payment.Date()
	if m == time.February && d == 29 && !isLeapYear(y+2) {
		d = 28
	}
	return time.Date(y+2, m, d, 0, 0, 0, 0, time.UTC).Format(ISODate)
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// DaysUntil returns the whole calendar days between now and the deadline,
// both taken at civil midnight in tz. Negative once the deadline has
// passed. The midnights are re-anchored in UTC before subtracting, so DST
// transitions inside the interval cannot skew the count.
func DaysUntil(deadlineISO, tz string, now time.Time) (int, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return 0, err
	}
	d, err := ParseDate(deadlineISO)
	if err != nil {
		return 0, err
	}

	ny, nm, nd := now.In(loc).Date()
	nowMidnight := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := d.Date()
	deadlineMidnight := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)

	return int(deadlineMidnight.Sub(nowMidnight) / (24 * time.Hour)), nil
}

// IsExpired reports whether the deadline has already passed in tz. Defined
// strictly as DaysUntil < 0; no other code path may decide expiry.
func IsExpired(deadlineISO, tz string, now time.Time) (bool, error) {
	days, err := DaysUntil(deadlineISO, tz, now)
	if err != nil {
		return false, err
	}
	return days < 0, nil
}

// LoadZone resolves an IANA timezone name. An unresolvable name is a
// configuration error for the caller to handle; the only sanctioned
// fallback is the UTC default applied when a User record is created.
func LoadZone(tz string) (*time.Location, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return loc, nil
}

// FormatForDisplay renders a stored YYYY-MM-DD date as "Jan 02, 2006".
// Stored dates are civil dates, so no zone conversion applies.
func FormatForDisplay(iso string) string {
	t, err := ParseDate(iso)
	if err != nil {
		return iso
	}
	return t.Format("Jan 02, 2006")
}
