package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CanonicalDate is the storage form of a plan date. Month and day are range
// checked only; the 31st of a 30-day month is accepted and left to review.
type CanonicalDate struct {
	Year  int
	Month int
	Day   int
}

var (
	reDate     = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})$`)
	reDateScan = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})\b`)
)

// ParseDate accepts slash- or dash-separated month/day/year with a 2- or
// 4-digit year. Two-digit years map to the current century (25 -> 2025).
// Returns nil for anything out of range or unparseable; callers keep the raw
// input around so the user can see and fix it.
func ParseDate(input string) *CanonicalDate {
	m := reDate.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return nil
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}

	return &CanonicalDate{Year: year, Month: month, Day: day}
}

// FormatDate renders the display form, zero-padded with a two-digit year for
// the current century. Display only; storage uses ISO.
func FormatDate(d CanonicalDate) string {
	if d.Year >= 2000 && d.Year <= 2099 {
		return fmt.Sprintf("%02d/%02d/%02d", d.Month, d.Day, d.Year%100)
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Month, d.Day, d.Year)
}

// ISO is the storage form written back to the facility record.
func (d CanonicalDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FindDateNear scans extracted text for a date stamp. With anchors it only
// looks in a short window following each anchor phrase, first hit wins;
// without anchors it returns nil rather than guessing among unrelated dates.
func FindDateNear(text string, anchors []string) *string {
	if len(anchors) == 0 {
		return nil
	}

	lower := strings.ToLower(text)
	for _, anchor := range anchors {
		a := strings.ToLower(strings.TrimSpace(anchor))
		if a == "" {
			continue
		}
		idx := strings.Index(lower, a)
		if idx < 0 {
			continue
		}
		window := text[idx:]
		if len(window) > len(a)+80 {
			window = window[:len(a)+80]
		}
		for _, candidate := range reDateScan.FindAllString(window, -1) {
			if ParseDate(candidate) != nil {
				out := candidate
				return &out
			}
		}
	}
	return nil
}
