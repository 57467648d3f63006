package utils

import (
	"regexp"
	"strings"
	"time"
)

var (
	isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	time24Regex  = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	offsetRegex  = regexp.MustCompile(`([+-]\d{2}:\d{2}|Z)$`)
)

// 上游历史数据中偶尔缺失时区偏移，此时按场馆所在的东部时区兜底
const DefaultUTCOffset = "-05:00"

func IsValidISODate(value string) bool {
	if !isoDateRegex.MatchString(value) {
		return false
	}
	// 正则只能保证形状，还需要确认是真实存在的日期（如 2026-02-30 应判为非法）
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return false
	}
	return t.Format("2006-01-02") == value
}

func IsValidTime24(value string) bool {
	return time24Regex.MatchString(value)
}

// TimeRangeValid 判断结束时间是否严格晚于开始时间。
// 两个时间都是定宽零填充的 HH:mm，补上秒后直接做字符串比较即可。
func TimeRangeValid(startTime, endTime string) bool {
	if !IsValidTime24(startTime) || !IsValidTime24(endTime) {
		return false
	}
	return startTime+":00" < endTime+":00"
}

// ExtractDateFromDateTime 从 ISO 日期时间中取出日期部分
func ExtractDateFromDateTime(value string) string {
	if !strings.Contains(value, "T") {
		return ""
	}
	return strings.SplitN(value, "T", 2)[0]
}

// ExtractTimeFromDateTime 从 ISO 日期时间中取出 HH:mm 部分
func ExtractTimeFromDateTime(value string) string {
	idx := strings.Index(value, "T")
	if idx < 0 || len(value) < idx+6 {
		return ""
	}
	return value[idx+1 : idx+6]
}

// ResolveOffset 取出班次当前开始时间上的 UTC 偏移。
// 改写班次时必须原样复用这个偏移，避免夏令时切换导致时间漂移。
func ResolveOffset(dtstart, dtend string) string {
	if m := offsetRegex.FindString(dtstart); m != "" {
		return m
	}
	if m := offsetRegex.FindString(dtend); m != "" {
		return m
	}
	return DefaultUTCOffset
}

// BuildDateTime 由日期、HH:mm 时间和 UTC 偏移拼出上游要求的日期时间
func BuildDateTime(dateISO, time24, offset string) string {
	return dateISO + "T" + time24 + ":00" + offset
}

// FormatDateForRegistry 把 ISO 日期转成注册表要求的 MM/DD/YYYY 格式
func FormatDateForRegistry(dateISO string) string {
	parts := strings.Split(dateISO, "-")
	if len(parts) != 3 {
		return dateISO
	}
	return parts[1] + "/" + parts[2] + "/" + parts[0]
}

// FormatTimeForDisplay 把 ISO 日期时间转成展示用的 12 小时制时间标签
func FormatTimeForDisplay(dateTime string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339, dateTime)
	if err != nil {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("3:04 PM")
}
