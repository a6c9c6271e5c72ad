package billing

import (
	"fmt"
	"time"
)

// Period is a billing month.
type Period struct {
	Month int
	Year  int
}

// PeriodOf returns the month containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

// Valid reports whether Month is 1..12 and Year is plausible.
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year >= 2000 && p.Year <= 9999
}

// Prev returns the month before p.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Next returns the month after p.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// IsFirstPeriod reports whether p is the month the contract starts in, judged
// in the location of start.
func IsFirstPeriod(start time.Time, p Period) bool {
	return PeriodOf(start) == p
}

// DaysIn returns the number of days in the period's month.
func (p Period) DaysIn() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDate is the end of the given day-of-month in p, clamped to the month's
// length. A date already past relative to now moves to the same day of the
// next month. Results are in now's location.
func DueDate(p Period, day int, now time.Time) time.Time {
	due := endOfDay(p, day, now.Location())
	if due.Before(now) {
		due = endOfDay(p.Next(), day, now.Location())
	}
	return due
}

func endOfDay(p Period, day int, loc *time.Location) time.Time {
	if day < 1 {
		day = 1
	}
	if last := p.DaysIn(); day > last {
		day = last
	}
	return time.Date(p.Year, time.Month(p.Month), day, 23, 59, 59, 0, loc)
}
