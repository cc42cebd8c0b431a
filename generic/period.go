package generic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// MONTH LABELS - "<MonthName>/<Year>"
// =============================================================================

// MonthLabel is the external month identifier, e.g. "Janeiro/2025".
type MonthLabel string

// monthNames is the fixed, ordered set of calendar month names used in labels.
var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// monthIndex maps lower-cased month names to calendar months. Built once.
var monthIndex = func() map[string]time.Month {
	idx := make(map[string]time.Month, len(monthNames)+1)
	for i, name := range monthNames {
		idx[strings.ToLower(name)] = time.Month(i + 1)
	}
	idx["marco"] = time.March
	return idx
}()

// MonthName returns the label name for a calendar month.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// ParseMonthLabel converts "Janeiro/2025" into a Month. Names are
// case-insensitive and surrounding whitespace is ignored.
func ParseMonthLabel(label MonthLabel) (Month, error) {
	name, yearStr, ok := strings.Cut(strings.TrimSpace(string(label)), "/")
	if !ok {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonthLabel, label)
	}
	month, ok := monthIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Month{}, fmt.Errorf("%w: unknown month name %q", ErrInvalidMonthLabel, name)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil || year <= 0 {
		return Month{}, fmt.Errorf("%w: bad year %q", ErrInvalidMonthLabel, yearStr)
	}
	return Month{Year: year, Month: month}, nil
}

// Label renders the month in label form.
func (m Month) Label() MonthLabel {
	return MonthLabel(fmt.Sprintf("%s/%d", MonthName(m.Month), m.Year))
}

func (m Month) String() string { return string(m.Label()) }

// SortMonths orders months chronologically in place.
func SortMonths(months []Month) {
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
}

// =============================================================================
// SEMESTER - Fixed six-month window (H1: Jan-Jun, H2: Jul-Dec)
// =============================================================================

type Half int

const (
	FirstHalf  Half = 1
	SecondHalf Half = 2
)

type Semester struct {
	Year int
	Half Half
}

// Semester returns the window containing the month.
func (m Month) Semester() Semester {
	if m.Month <= time.June {
		return Semester{Year: m.Year, Half: FirstHalf}
	}
	return Semester{Year: m.Year, Half: SecondHalf}
}

func (s Semester) IsValid() bool { return s.Year > 0 && (s.Half == FirstHalf || s.Half == SecondHalf) }

// First returns the first month of the window.
func (s Semester) First() Month {
	if s.Half == SecondHalf {
		return Month{Year: s.Year, Month: time.July}
	}
	return Month{Year: s.Year, Month: time.January}
}

// Months returns the six months of the window in order.
func (s Semester) Months() []Month {
	first := s.First()
	months := make([]Month, 6)
	for i := range months {
		months[i] = first.AddMonths(i)
	}
	return months
}

// Contains returns true if the month falls inside the window.
func (s Semester) Contains(m Month) bool {
	return m.Semester() == s
}

func (s Semester) String() string { return fmt.Sprintf("%d-H%d", s.Year, s.Half) }

// ParseSemester parses "2025-H1" / "2025-h2".
func ParseSemester(s string) (Semester, error) {
	yearStr, halfStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Semester{}, fmt.Errorf("%w: %q", ErrInvalidSemester, s)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return Semester{}, fmt.Errorf("%w: bad year %q", ErrInvalidSemester, yearStr)
	}
	var sem Semester
	switch strings.ToUpper(halfStr) {
	case "H1":
		sem = Semester{Year: year, Half: FirstHalf}
	case "H2":
		sem = Semester{Year: year, Half: SecondHalf}
	default:
		return Semester{}, fmt.Errorf("%w: bad half %q", ErrInvalidSemester, halfStr)
	}
	if !sem.IsValid() {
		return Semester{}, fmt.Errorf("%w: %q", ErrInvalidSemester, s)
	}
	return sem, nil
}
