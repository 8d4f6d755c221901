package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoDate is returned when no source yields a calendar date.
var ErrNoDate = errors.New("no date could be derived")

const dateLayout = "20060102"

// A date in a file name must start the name, follow a path separator or
// follow an underscore.
var nameDatePattern = regexp.MustCompile(`(?:^|[/\\_])(\d{4})(?:(\d{2})(\d{2})|-(\d{2})-(\d{2})|_(\d{2})_(\d{2}))`)

var activityIDLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
}

// DateFromActivityID derives YYYYMMDD from an ISO-8601 instant, in UTC.
func DateFromActivityID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	for _, layout := range activityIDLayouts {
		if t, err := time.Parse(layout, id); err == nil {
			return t.UTC().Format(dateLayout)
		}
	}
	return ""
}

// DateFromName scans a file name or path for YYYYMMDD, YYYY-MM-DD or
// YYYY_MM_DD. The first syntactically valid match wins.
func DateFromName(name string) string {
	for _, m := range nameDatePattern.FindAllStringSubmatch(name, -1) {
		year := m[1]
		month, day := m[2], m[3]
		if month == "" {
			month, day = m[4], m[5]
		}
		if month == "" {
			month, day = m[6], m[7]
		}
		if validDate(year, month, day) {
			return year + month + day
		}
	}
	return ""
}

// fitEpoch is the FIT timestamp origin; earlier values mean "not set".
var fitEpoch = time.Date(1989, time.December, 31, 0, 0, 0, 0, time.UTC)

// DateFromTime formats t as YYYYMMDD in UTC, or "" for unset timestamps.
func DateFromTime(t time.Time) string {
	if t.IsZero() || !t.After(fitEpoch) {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func validDate(year, month, day string) bool {
	y, err := strconv.Atoi(year)
	if err != nil || y < 2000 || y > 2100 {
		return false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return false
	}
	return true
}
