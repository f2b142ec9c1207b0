// Package report 提供基于已加载数据的统计计算：月份键、区间汇总、分类占比、月度趋势、
// 预算与储蓄目标状态。所有函数都是纯计算，不做任何 I/O。
package report

import (
	"fmt"
	"time"
)

// MonthLayout 月份键格式 YYYY-MM
const MonthLayout = "2006-01"

// MonthKey 返回日期所在月份的键
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// ParseMonth 解析月份键，返回该月第一天 00:00（本地时区）
func ParseMonth(key string) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", key, err)
	}
	return t, nil
}

// MonthRange 返回日期所在自然月的 [start, end]，end 为该月最后一纳秒
func MonthRange(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// MonthRangeOf 按月份键返回自然月区间
func MonthRangeOf(key string) (start, end time.Time, err error) {
	t, err := ParseMonth(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end = MonthRange(t)
	return start, end, nil
}

// AddMonths 以月初为基准前后移动 n 个月，避免 31 日跨月溢出
func AddMonths(t time.Time, n int) time.Time {
	start, _ := MonthRange(t)
	return start.AddDate(0, n, 0)
}

// within 闭区间判断
func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
