package dashboard

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var hundred = decimal.NewFromInt(100)

// readNumber 把任意 JSON 值解析为数值；缺失、null、非数字一律视为未知。
func readNumber(res gjson.Result) decimal.NullDecimal {
	switch res.Type {
	case gjson.Number:
		return parseDecimal(res.Raw)
	case gjson.String:
		return parseDecimal(res.Str)
	default:
		return decimal.NullDecimal{}
	}
}

func parseDecimal(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.NullDecimal{}
		}
		d = decimal.NewFromFloat(f)
	}
	return finiteDecimal(d)
}

// float64 的量级边界，超出即视为未知，过小视为 0。
const (
	maxMagnitude = 308
	minMagnitude = -324
)

// finiteDecimal keeps only values a float64 could hold; 1e400 and 1e99999999 are unknown.
func finiteDecimal(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return known(decimal.Zero)
	}
	magnitude := int64(d.Exponent()) + int64(d.NumDigits()) - 1
	switch {
	case magnitude > maxMagnitude:
		return decimal.NullDecimal{}
	case magnitude == maxMagnitude && math.IsInf(d.InexactFloat64(), 0):
		return decimal.NullDecimal{}
	case magnitude < minMagnitude:
		return known(decimal.Zero)
	}
	return known(d)
}

// firstNumber 按优先级读取第一个存在的字段。
// A present but non-numeric value still wins the slot and yields unknown.
func firstNumber(obj gjson.Result, keys []string) decimal.NullDecimal {
	for _, key := range keys {
		if v := obj.Get(key); v.Exists() && v.Type != gjson.Null {
			return readNumber(v)
		}
	}
	return decimal.NullDecimal{}
}

// firstText returns the first non-blank string among keys.
func firstText(obj gjson.Result, keys []string) string {
	for _, key := range keys {
		v := obj.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func orZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

func known(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 100_000_000_000

// readTime 解析时间戳；无法解析时 ok=false。
// Offset-less layouts are read as UTC.
func readTime(res gjson.Result) (time.Time, bool) {
	switch res.Type {
	case gjson.Number:
		return epochTime(res.Float())
	case gjson.String:
		return parseTime(res.Str)
	default:
		return time.Time{}, false
	}
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return epochTime(f)
	}
	return time.Time{}, false
}

func epochTime(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return time.Time{}, false
	}
	if v >= epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC(), true
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// rawText keeps the literal text of a value for identifiers and dedup keys.
func rawText(res gjson.Result) string {
	if !res.Exists() || res.Type == gjson.Null {
		return ""
	}
	if res.Type == gjson.String {
		return strings.TrimSpace(res.Str)
	}
	return strings.TrimSpace(res.Raw)
}

// sortKey is the millisecond value used for chronological ordering; unknown times sort as 0.
func sortKey(t time.Time, ok bool) int64 {
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func nullString(n decimal.NullDecimal) string {
	if !n.Valid {
		return ""
	}
	return n.Decimal.String()
}
