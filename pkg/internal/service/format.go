package service

import (
	"fmt"
	"math"
	"time"
)

// FormatBytes 格式化字节数为人类可读格式，如 "1.00 KB"、"2.50 MB".
func FormatBytes(bytes int64) string {
	value := float64(bytes)

	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}

		value /= 1024
	}

	return fmt.Sprintf("%.2f PB", value)
}

// FormatEndDate 格式化订阅到期时间，nil 表示永久订阅.
func FormatEndDate(t *time.Time) string {
	if t == nil {
		return "永久"
	}

	return t.Format("2006-01-02 15:04:05")
}

// UsagePercentage 计算用量百分比，保留两位小数. 上限为 0 时返回 0.
func UsagePercentage(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}

	return math.Round(float64(used)/float64(limit)*100*100) / 100
}
