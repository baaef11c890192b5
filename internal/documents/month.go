package documents

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthYear is a calendar month. Ranges are computed in UTC.
type MonthYear struct {
	Month time.Month
	Year  int
}

// ParseMonthYear parses "MM-YYYY" or "MM". A missing year means the year of now.
func ParseMonthYear(s string, now time.Time) (MonthYear, error) {
	ms, ys, hasYear := strings.Cut(strings.TrimSpace(s), "-")

	m, err := strconv.Atoi(ms)
	if err != nil || m < 1 || m > 12 {
		return MonthYear{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}

	y := now.Year()
	if hasYear {
		if y, err = strconv.Atoi(ys); err != nil || y < 1 {
			return MonthYear{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
		}
	}

	return MonthYear{Month: time.Month(m), Year: y}, nil
}

// Start returns midnight UTC on the first day of the month.
func (m MonthYear) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Range returns the half-open interval [first of month, first of next month).
func (m MonthYear) Range() (time.Time, time.Time) {
	start := m.Start()
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the month.
func (m MonthYear) Contains(t time.Time) bool {
	from, to := m.Range()
	return !t.Before(from) && t.Before(to)
}

// AddMonths shifts the month by n, which may be negative.
func (m MonthYear) AddMonths(n int) MonthYear {
	t := time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return MonthYear{Month: t.Month(), Year: t.Year()}
}

func (m MonthYear) String() string {
	return fmt.Sprintf("%02d-%04d", int(m.Month), m.Year)
}
