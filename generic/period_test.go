package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// MONTH LABELS
// =============================================================================

func TestParseMonthLabel(t *testing.T) {
	cases := map[generic.MonthLabel]generic.Month{
		"Janeiro/2025":     generic.NewMonth(2025, time.January),
		"Março/2025":       generic.NewMonth(2025, time.March),
		"Marco/2025":       generic.NewMonth(2025, time.March),
		"  dezembro/2024 ": generic.NewMonth(2024, time.December),
		"JULHO/2026":       generic.NewMonth(2026, time.July),
	}
	for label, want := range cases {
		t.Run(string(label), func(t *testing.T) {
			got, err := generic.ParseMonthLabel(label)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseMonthLabel_Rejects(t *testing.T) {
	for _, label := range []generic.MonthLabel{"", "Janeiro", "January/2025", "Janeiro/abc", "Janeiro/0", "2025/Janeiro"} {
		_, err := generic.ParseMonthLabel(label)
		assert.ErrorIs(t, err, generic.ErrInvalidMonthLabel, "label %q", label)
	}
}

func TestMonth_LabelRoundTrip(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		month := generic.NewMonth(2025, m)
		parsed, err := generic.ParseMonthLabel(month.Label())
		require.NoError(t, err)
		assert.Equal(t, month, parsed)
	}
	assert.Equal(t, generic.MonthLabel("Março/2025"), generic.NewMonth(2025, time.March).Label())
	assert.Equal(t, "", generic.MonthName(0))
}

func TestSortMonths(t *testing.T) {
	months := []generic.Month{
		generic.NewMonth(2025, time.March),
		generic.NewMonth(2024, time.December),
		generic.NewMonth(2025, time.January),
	}
	generic.SortMonths(months)
	assert.Equal(t, []generic.Month{
		generic.NewMonth(2024, time.December),
		generic.NewMonth(2025, time.January),
		generic.NewMonth(2025, time.March),
	}, months)
}

func TestMonth_AddMonthsCrossesYear(t *testing.T) {
	m := generic.NewMonth(2025, time.November).AddMonths(3)
	assert.Equal(t, generic.NewMonth(2026, time.February), m)
	assert.Equal(t, 3, generic.MonthsBetween(generic.NewMonth(2025, time.November), m))
}

// =============================================================================
// SEMESTERS
// =============================================================================

func TestParseSemester(t *testing.T) {
	sem, err := generic.ParseSemester("2025-H1")
	require.NoError(t, err)
	assert.Equal(t, generic.Semester{Year: 2025, Half: generic.FirstHalf}, sem)

	sem, err = generic.ParseSemester("2024-h2")
	require.NoError(t, err)
	assert.Equal(t, generic.SecondHalf, sem.Half)
	assert.Equal(t, "2024-H2", sem.String())

	for _, bad := range []string{"", "2025", "2025-H3", "abc-H1", "0-H1", "-5-H1"} {
		_, err := generic.ParseSemester(bad)
		assert.ErrorIs(t, err, generic.ErrInvalidSemester, "input %q", bad)
	}
}

func TestSemester_Months(t *testing.T) {
	h2 := generic.Semester{Year: 2025, Half: generic.SecondHalf}
	months := h2.Months()

	require.Len(t, months, 6)
	assert.Equal(t, time.July, months[0].Month)
	assert.Equal(t, time.December, months[5].Month)
	for _, m := range months {
		assert.True(t, h2.Contains(m))
		assert.Equal(t, h2, m.Semester())
	}
	assert.False(t, h2.Contains(generic.NewMonth(2025, time.June)))
	assert.False(t, h2.Contains(generic.NewMonth(2026, time.July)))
}
