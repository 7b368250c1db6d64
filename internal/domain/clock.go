package domain

import (
	"fmt"
	"math"
	"time"
)

// ClockLayout 班次开始/结束时间的格式
const ClockLayout = "15:04"

const (
	dayStartHour = 8
	dayEndHour   = 20
)

// ParseClock 将 "HH:MM" 解析为当天的分钟数
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("时间格式错误 %q，应为 HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock 将当天的分钟数格式化为 "HH:MM"
func FormatClock(minutes int) string {
	minutes = ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// OvernightAwareDuration 计算 start 到 end 的小时数，end <= start 时视为跨天
func OvernightAwareDuration(start, end string) (float64, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	if e <= s {
		e += 24 * 60
	}
	return float64(e-s) / 60, nil
}

// Classify 开始时间在 [08:00, 20:00) 为白班，否则为夜班
func Classify(start string) (Classification, error) {
	m, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	if m >= dayStartHour*60 && m < dayEndHour*60 {
		return ClassificationDay, nil
	}
	return ClassificationNight, nil
}

// DateOnly 去掉时分秒，统一使用 UTC 零点表示日期
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HoursToDuration 将小时数转换为 time.Duration，按分钟取整
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(math.Round(hours*60)) * time.Minute
}

// RoundMoney 金额保留两位小数
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
