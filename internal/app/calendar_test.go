package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysIn(tt.year, tt.month), "%d-%02d", tt.year, tt.month)
	}
}

func TestDateWeekday(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Monday, Date(2024, time.January, 1).Weekday())
	assert.Equal(t, time.Sunday, Date(2023, time.January, 1).Weekday())
	assert.Equal(t, "2024-01-01", DayKey(Date(2024, time.January, 1)))
}

func TestParseDay(t *testing.T) {
	t.Parallel()

	day, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.February, 29), day)

	for _, input := range []string{"", "2024-2-1", "2023-02-29", "2024-13-01", "01.02.2024", "2024-01-01T00:00:00Z"} {
		_, err := ParseDay(input)
		assert.ErrorIs(t, err, ErrInvalidDay, input)
	}
}

func TestShiftMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year      int
		month     time.Month
		delta     int
		wantYear  int
		wantMonth time.Month
	}{
		{2024, time.March, 0, 2024, time.March},
		{2024, time.December, 1, 2025, time.January},
		{2024, time.January, -1, 2023, time.December},
		{2024, time.June, -18, 2022, time.December},
		{2024, time.June, 30, 2026, time.December},
	}

	for _, tt := range tests {
		year, month := ShiftMonth(tt.year, tt.month, tt.delta)
		assert.Equal(t, tt.wantYear, year)
		assert.Equal(t, tt.wantMonth, month)
	}
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count int
		want  Level
	}{
		{0, LevelNone},
		{1, LevelLow},
		{2, LevelLow},
		{3, LevelMedium},
		{5, LevelMedium},
		{6, LevelHigh},
		{100, LevelHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.count), "count %d", tt.count)
	}
	assert.Equal(t, "medium", LevelMedium.String())
}
