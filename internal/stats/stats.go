// Package stats computes aggregate totals over activities.
package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sstent/runlog-go/internal/models"
)

// contribution is what one activity adds to the totals.
type contribution struct {
	distanceKm float64
	seconds    int64
	calories   int64
}

// Compute totals distance, time and calories over the activities. Each
// activity contributes through exactly one source: the promoted summary, the
// row-table summary, then the trace laps.
func Compute(activities []models.Activity) models.Statistics {
	var total contribution
	for i := range activities {
		c := contributionOf(&activities[i])
		total.distanceKm += c.distanceKm
		total.seconds += c.seconds
		total.calories += c.calories
	}

	var average float64
	if len(activities) > 0 {
		average = total.distanceKm / float64(len(activities))
	}

	return models.Statistics{
		TotalDistanceKm:       Round2(total.distanceKm),
		TotalTimeFormatted:    FormatDuration(total.seconds),
		TotalCalories:         int(total.calories),
		AverageDistancePerRun: Round2(average),
	}
}

func contributionOf(a *models.Activity) contribution {
	if _, ok := a.Summary["getdistance"]; ok {
		return fromSummary(a.Summary)
	}
	if csv := a.Sources.CSV; csv != nil {
		if _, ok := csv.Data.Summary["getdistance"]; ok {
			return fromSummary(csv.Data.Summary)
		}
	}
	if tcx := a.Sources.TCX; tcx != nil && len(tcx.Data.Laps) > 0 {
		var c contribution
		var seconds float64
		for _, lap := range tcx.Data.Laps {
			c.distanceKm += lap.DistanceMeters / 1000
			seconds += lap.TotalTimeSeconds
			c.calories += int64(lap.Calories)
		}
		c.seconds = int64(math.Round(seconds))
		return c
	}
	return contribution{}
}

func fromSummary(summary models.Split) contribution {
	var c contribution
	if d, ok := number(summary["getdistance"]); ok {
		c.distanceKm = d
	}
	if cal, ok := number(summary["calories"]); ok {
		c.calories = int64(cal)
	}
	if s, ok := summary["time"].(string); ok {
		c.seconds = ParseDuration(s)
	}
	return c
}

// number accepts JSON numbers and numeric text; anything else is ignored.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ParseDuration converts "H:MM:SS" or "MM:SS" to seconds. Components that do
// not parse as integers count as zero; other shapes yield zero.
func ParseDuration(s string) int64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	component := func(p string) int64 {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}

	switch len(parts) {
	case 3:
		return component(parts[0])*3600 + component(parts[1])*60 + component(parts[2])
	case 2:
		return component(parts[0])*60 + component(parts[1])
	default:
		return 0
	}
}

// FormatDuration renders seconds as zero-padded HH:MM:SS.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Round2 rounds half away from zero at the hundredths place. It rounds the
// shortest decimal text of v, so 1.005 becomes 1.01 even though its binary
// value sits just below the half.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	text := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	whole, frac, _ := strings.Cut(text, ".")
	if len(frac) <= 2 {
		return v
	}
	cents, err := strconv.ParseInt(whole+frac[:2], 10, 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	if frac[2] >= '5' {
		cents++
	}
	if cents == 0 {
		return 0
	}
	return math.Copysign(float64(cents)/100, v)
}
