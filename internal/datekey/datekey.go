// Package datekey converts between calendar days and canonical YYYY-MM-DD keys.
//
// Keys always describe wall-clock calendar fields in the location of the
// supplied time; no timezone conversion happens here.
package datekey

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const Layout = "2006-01-02"

// Format returns the YYYY-MM-DD key for t's local calendar day.
func Format(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// FromTimestamp is Format under the name used for settlement stamps.
func FromTimestamp(t time.Time) string {
	return Format(t)
}

// Parse reads key as a local-midnight date in time.Local.
func Parse(key string) (time.Time, bool) {
	return ParseIn(key, time.Local)
}

// ParseIn reads key as midnight in loc. Zero, missing, non-numeric and
// out-of-range components (month 13, Feb 30) are rejected.
func ParseIn(key string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Split(strings.TrimSpace(key), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	fields := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		fields[i] = n
	}
	y, m, d := fields[0], fields[1], fields[2]
	if m > 12 || d > 31 {
		return time.Time{}, false
	}
	out := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if out.Year() != y || int(out.Month()) != m || out.Day() != d {
		return time.Time{}, false
	}
	return out, true
}

// Valid reports whether key parses.
func Valid(key string) bool {
	_, ok := ParseIn(key, time.UTC)
	return ok
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days, keeping the wall-clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the whole calendar days from a to b, ignoring the
// time of day. It is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// Shift returns the key n days after key. Invalid keys come back unchanged.
func Shift(key string, n int) string {
	t, ok := ParseIn(key, time.UTC)
	if !ok {
		return key
	}
	return Format(t.AddDate(0, 0, n))
}
