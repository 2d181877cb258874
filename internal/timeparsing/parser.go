// Package timeparsing turns user time expressions into instants.
//
// Expressions are tried in layers:
//  1. Go durations and compact durations (90m, 2h30m, -1d, 2w)
//  2. Natural language (yesterday, last monday, 3 hours ago)
//  3. Absolute timestamps (RFC3339, "2006-01-02 15:04", date only)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// compactDurationRe matches [+-]?(\d+)([hdwmy]). The m unit is months.
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// ParseCompactDuration applies a compact duration to now. No sign means
// forward in time.
//
//	"+6h" -> now + 6 hours
//	"-1d" -> now - 1 day
//	"3m"  -> now + 3 months
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	sign, amount, unit, ok := splitCompact(s)
	if !ok {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}
	if sign == "-" {
		amount = -amount
	}
	return applyDuration(now, amount, unit), nil
}

// IsCompactDuration reports whether s is compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

func splitCompact(s string) (sign string, amount int, unit string, ok bool) {
	m := compactDurationRe.FindStringSubmatch(s)
	if m == nil {
		return "", 0, "", false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", false
	}
	return m[1], n, m[3], true
}

func applyDuration(base time.Time, amount int, unit string) time.Time {
	switch unit {
	case "h":
		return base.Add(time.Duration(amount) * time.Hour)
	case "d":
		return base.AddDate(0, 0, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "m":
		return base.AddDate(0, amount, 0)
	case "y":
		return base.AddDate(amount, 0, 0)
	default:
		return base
	}
}

var nlp = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseNaturalLanguage parses English expressions relative to now.
func ParseNaturalLanguage(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	r, err := nlp.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("not a recognized time expression: %q", s)
	}
	return r.Time, nil
}

var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseAbsolute(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseRelativeTime parses s with all layers, compact durations first.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	if t, err := ParseCompactDuration(s, now); err == nil {
		return t, nil
	}
	if t, ok := parseAbsolute(s, now.Location()); ok {
		return t, nil
	}
	if t, err := ParseNaturalLanguage(s, now); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q: use a duration (30m, 2h, 1d), a phrase (yesterday) or a date (2006-01-02)", s)
}

// ParseSince parses a lower bound for filtering past events. Bare
// durations count backwards from now, so "30m" is thirty minutes ago and
// "2d" is two days ago. Go durations win over compact ones, so "5m" is
// minutes, not months.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if d, err := time.ParseDuration(trimmed); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	if _, amount, unit, ok := splitCompact(s); ok {
		return applyDuration(now, -amount, unit), nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(now) {
		return time.Time{}, fmt.Errorf("--since %q is in the future", s)
	}
	return t, nil
}
