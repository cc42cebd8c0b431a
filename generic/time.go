package generic

import (
	"time"
)

// =============================================================================
// MONTH - Calendar month (evaluations are keyed by month, never by day)
// =============================================================================

type Month struct {
	Year  int
	Month time.Month
}

// Constructors
func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func CurrentMonth() Month {
	return MonthOf(time.Now())
}

// Comparison
func (m Month) index() int                  { return m.Year*12 + int(m.Month) - 1 }
func (m Month) Before(other Month) bool     { return m.index() < other.index() }
func (m Month) After(other Month) bool      { return m.index() > other.index() }
func (m Month) Equal(other Month) bool      { return m.index() == other.index() }
func (m Month) IsValid() bool               { return m.Month >= time.January && m.Month <= time.December }
func (m Month) IsZero() bool                { return m.Year == 0 && m.Month == 0 }

// Arithmetic
func (m Month) AddMonths(n int) Month {
	i := m.index() + n
	return Month{Year: i / 12, Month: time.Month(i%12 + 1)}
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the month in UTC.
func (m Month) End() time.Time {
	return time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// MonthsBetween returns the number of months from 'from' to 'to' (negative if to is earlier).
func MonthsBetween(from, to Month) int { return to.index() - from.index() }
