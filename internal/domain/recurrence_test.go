package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestNextDueDate_Calendar 日历运算与月末收敛
func TestNextDueDate_Calendar(t *testing.T) {
	cases := []struct {
		name   string
		freq   Frequency
		custom int
		anchor time.Time
		want   time.Time
	}{
		{"daily", FrequencyDaily, 0, date(2024, 3, 10), date(2024, 3, 11)},
		{"weekly", FrequencyWeekly, 0, date(2024, 3, 10), date(2024, 3, 17)},
		{"monthly mid-month", FrequencyMonthly, 0, date(2024, 1, 15), date(2024, 2, 15)},
		{"monthly clamp leap year", FrequencyMonthly, 0, date(2024, 1, 31), date(2024, 2, 29)},
		{"monthly clamp non-leap", FrequencyMonthly, 0, date(2023, 1, 31), date(2023, 2, 28)},
		{"monthly across year end", FrequencyMonthly, 0, date(2023, 12, 31), date(2024, 1, 31)},
		{"quarterly", FrequencyQuarterly, 0, date(2024, 1, 15), date(2024, 4, 15)},
		{"quarterly clamp", FrequencyQuarterly, 0, date(2024, 11, 30), date(2025, 2, 28)},
		{"annually", FrequencyAnnually, 0, date(2024, 5, 20), date(2025, 5, 20)},
		{"annually feb29 clamp", FrequencyAnnually, 0, date(2024, 2, 29), date(2025, 2, 28)},
		{"custom 45 days", FrequencyCustom, 45, date(2024, 1, 1), date(2024, 2, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextDueDate(tc.freq, tc.custom, tc.anchor)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			// 到期日永远不早于锚点
			require.False(t, got.Before(tc.anchor))
		})
	}
}

func TestNextDueDate_InvalidInput(t *testing.T) {
	_, err := NextDueDate(Frequency("biweekly"), 0, date(2024, 1, 1))
	require.ErrorIs(t, err, ErrInvalidInput)

	// custom 缺少天数
	_, err = NextDueDate(FrequencyCustom, 0, date(2024, 1, 1))
	require.ErrorIs(t, err, ErrInvalidInput)

	// custom 超出范围
	_, err = NextDueDate(FrequencyCustom, 3651, date(2024, 1, 1))
	require.ErrorIs(t, err, ErrInvalidInput)

	// 非 custom 周期不依赖 customFrequencyDays
	_, err = NextDueDate(FrequencyWeekly, 10, date(2024, 1, 1))
	require.NoError(t, err)
}

// TestDeriveStatus 时间跨过到期日时状态翻转，其余字段不参与
func TestDeriveStatus(t *testing.T) {
	due := date(2024, 3, 20)

	require.Equal(t, ScheduleActive, DeriveStatus("", due, due.Add(-time.Hour)))
	require.Equal(t, ScheduleOverdue, DeriveStatus("", due, due.Add(time.Hour)))
	// 正好等于到期日不算 overdue
	require.Equal(t, ScheduleActive, DeriveStatus("", due, due))

	// 显式标记不被时间覆盖
	require.Equal(t, ScheduleInactive, DeriveStatus(ScheduleInactive, due, due.Add(time.Hour)))
	require.Equal(t, ScheduleCompleted, DeriveStatus(ScheduleCompleted, due, due.Add(time.Hour)))
}

func TestScheduleAnchor(t *testing.T) {
	s := &Schedule{StartDate: date(2024, 1, 15)}
	require.Equal(t, date(2024, 1, 15), s.Anchor())

	done := date(2024, 2, 20)
	s.LastCompletedDate = &done
	require.Equal(t, done, s.Anchor())
}
