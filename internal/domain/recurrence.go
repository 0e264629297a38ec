package domain

import (
	"fmt"
	"time"
)

// Frequency 维护/巡检周期
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
	FrequencyCustom    Frequency = "custom"
)

// 自定义周期天数上下限
const (
	MinCustomFrequencyDays = 1
	MaxCustomFrequencyDays = 3650
)

// ValidateFrequency 校验周期枚举与 customFrequencyDays 的配对约束：
// frequency=custom 时必须给出 1..3650 的天数，其余周期不得依赖该字段。
func ValidateFrequency(freq Frequency, customDays int) error {
	switch freq {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return nil
	case FrequencyCustom:
		if customDays < MinCustomFrequencyDays || customDays > MaxCustomFrequencyDays {
			return fmt.Errorf("%w: customFrequencyDays must be %d..%d when frequency=custom",
				ErrInvalidInput, MinCustomFrequencyDays, MaxCustomFrequencyDays)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, freq)
}

// NextDueDate 从锚点日期推算下次到期日。
// monthly/quarterly/annually 按日历月运算，目标月不足时收敛到月末
// （如 1-31 + monthly → 2-28/29）；daily/weekly/custom 按天数累加。
// 锚点取 lastCompletedDate，没有则取 startDate（由调用方决定）。
func NextDueDate(freq Frequency, customDays int, anchor time.Time) (time.Time, error) {
	if err := ValidateFrequency(freq, customDays); err != nil {
		return time.Time{}, err
	}
	anchor = anchor.UTC()
	switch freq {
	case FrequencyDaily:
		return anchor.AddDate(0, 0, 1), nil
	case FrequencyWeekly:
		return anchor.AddDate(0, 0, 7), nil
	case FrequencyMonthly:
		return addMonthsClamped(anchor, 1), nil
	case FrequencyQuarterly:
		return addMonthsClamped(anchor, 3), nil
	case FrequencyAnnually:
		return addMonthsClamped(anchor, 12), nil
	case FrequencyCustom:
		return anchor.AddDate(0, 0, customDays), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, freq)
}

// addMonthsClamped 日历月加法。不使用 time.AddDate 的跨月溢出语义
// （1-31 +1月 不应得到 3-02/03），目标月天数不足时固定在月末。
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) + months
	year += (m - 1) / 12
	month = time.Month((m-1)%12 + 1)

	if last := daysIn(year, month); day > last {
		day = last
	}
	h, min, sec := t.Clock()
	return time.Date(year, month, day, h, min, sec, t.Nanosecond(), time.UTC)
}

func daysIn(year int, month time.Month) int {
	// 下个月第 0 天即本月最后一天
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ScheduleStatus 计划状态。inactive/completed 是显式终态标记，
// overdue/active 按当前时间实时推导，从不落库。
type ScheduleStatus string

const (
	ScheduleActive    ScheduleStatus = "active"
	ScheduleInactive  ScheduleStatus = "inactive"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleOverdue   ScheduleStatus = "overdue"
)

// DeriveStatus 推导计划当前状态：
// 显式标记（inactive/completed）优先且不被时间覆盖；
// 否则 now > nextDueDate 为 overdue，反之 active。统一用 UTC 比较。
func DeriveStatus(override ScheduleStatus, nextDue time.Time, now time.Time) ScheduleStatus {
	switch override {
	case ScheduleInactive, ScheduleCompleted:
		return override
	}
	if now.UTC().After(nextDue.UTC()) {
		return ScheduleOverdue
	}
	return ScheduleActive
}

// ValidOverride 校验显式状态标记取值（"" 表示无标记）
func ValidOverride(s ScheduleStatus) bool {
	return s == "" || s == ScheduleInactive || s == ScheduleCompleted
}
