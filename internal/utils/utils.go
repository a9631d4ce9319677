package utils

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

// PhoneValidator normalises customer phone numbers and checks them against
// the configured mobile formats
type PhoneValidator struct {
	patterns []*regexp.Regexp
}

// NewPhoneValidator compiles the accepted phone patterns
func NewPhoneValidator(patterns []string) (*PhoneValidator, error) {
	v := &PhoneValidator{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid phone pattern %q: %w", p, err)
		}
		v.patterns = append(v.patterns, re)
	}
	return v, nil
}

// NormalizePhone strips spaces, dashes, dots and brackets
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// Normalize returns the normalised phone and whether it matches any pattern
func (v *PhoneValidator) Normalize(phone string) (string, bool) {
	n := NormalizePhone(phone)
	if n == "" {
		return "", false
	}
	for _, re := range v.patterns {
		if re.MatchString(n) {
			return n, true
		}
	}
	return n, false
}

// StartOfDay returns midnight of t's day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the most recent weekStart on or before t
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// ParseWeekday maps a config value such as "monday" to a time.Weekday
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown weekday %q", s)
}

// Trend returns the percentage change from prev to cur rounded to one decimal.
// With no previous activity the result is 0 when cur is also 0, else clamp.
func Trend(cur, prev, clamp float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return clamp
	}
	return math.Round((cur-prev)/prev*1000) / 10
}

// PollInterval returns base plus a random jitter in [0, jitter]
func PollInterval(base, jitter int) int {
	if jitter <= 0 {
		return base
	}
	return base + rand.IntN(jitter+1)
}
