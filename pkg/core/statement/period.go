package statement

import (
	"strconv"
	"strings"
	"time"
)

var periodLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// Period is a reporting-period column key. Date is the zero time when the
// label could not be parsed.
type Period struct {
	Label string
	Date  time.Time
}

// ParsePeriod parses a date-like column label. Bare years map to December 31
// of that year. Unparsable labels never fail; they yield a Period without a
// date.
func ParsePeriod(label string) Period {
	l := strings.TrimSpace(label)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, l); err == nil {
			return Period{Label: label, Date: t}
		}
	}
	if len(l) == 4 {
		if y, err := strconv.Atoi(l); err == nil && y > 0 {
			return Period{Label: label, Date: time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)}
		}
	}
	return Period{Label: label}
}

// YearPeriod builds the period key used by wide per-year tables.
func YearPeriod(year int) Period {
	return Period{Label: strconv.Itoa(year), Date: time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)}
}

// Dated reports whether the label parsed to a date.
func (p Period) Dated() bool { return !p.Date.IsZero() }

// Year returns the calendar year of the period, or 0 when undated.
func (p Period) Year() int {
	if !p.Dated() {
		return 0
	}
	return p.Date.Year()
}

func (p Period) String() string { return p.Label }

// ParsePeriods parses every label.
func ParsePeriods(labels ...string) []Period {
	out := make([]Period, len(labels))
	for i, l := range labels {
		out[i] = ParsePeriod(l)
	}
	return out
}
