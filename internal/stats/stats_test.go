package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sstent/runlog-go/internal/models"
)

func withSummary(distance any, time any, calories any) models.Activity {
	return models.Activity{
		Date:    "20251201",
		Summary: models.Split{"getdistance": distance, "time": time, "calories": calories},
	}
}

func TestCompute_PromotedSummary(t *testing.T) {
	activities := []models.Activity{
		withSummary(5.0, "00:35:00", 300.0),
		withSummary(3.0, "00:21:00", 180.0),
	}

	got := Compute(activities)
	assert.Equal(t, models.Statistics{
		TotalDistanceKm:       8.0,
		TotalTimeFormatted:    "00:56:00",
		TotalCalories:         480,
		AverageDistancePerRun: 4.0,
	}, got)
}

func TestCompute_InvalidValuesContributeZero(t *testing.T) {
	activities := []models.Activity{
		withSummary("invalid", "invalid:time", "N/A"),
		withSummary(5.0, "00:30:00", 250.0),
	}

	got := Compute(activities)
	assert.Equal(t, 5.0, got.TotalDistanceKm)
	assert.Equal(t, "00:30:00", got.TotalTimeFormatted)
	assert.Equal(t, 250, got.TotalCalories)
	assert.Equal(t, 2.5, got.AverageDistancePerRun)
}

func TestCompute_SourcePriority(t *testing.T) {
	nested := models.Activity{
		Date: "20251202",
		Sources: models.Sources{CSV: &models.RowFragment{Data: models.RowData{
			Summary: models.Split{"getdistance": "4.88", "time": "35:00", "calories": 310.0},
		}}},
	}
	laps := models.Activity{
		Date: "20251203",
		Sources: models.Sources{TCX: &models.TraceFragment{Data: models.TraceData{Laps: []models.Lap{
			{DistanceMeters: 1500, TotalTimeSeconds: 400.4, Calories: 90},
			{DistanceMeters: 500, TotalTimeSeconds: 200.2, Calories: 30},
		}}}},
	}
	// promoted summary wins, laps are not double counted
	both := withSummary(1.0, "00:05:00", 50.0)
	both.Sources = laps.Sources
	stubOnly := models.Activity{
		Date:    "20251204",
		Sources: models.Sources{FIT: &models.BinaryFragment{Data: models.BinaryData{Note: "no decoder"}}},
	}

	tests := []struct {
		name     string
		activity models.Activity
		want     models.Statistics
	}{
		{"nested csv summary", nested, models.Statistics{TotalDistanceKm: 4.88, TotalTimeFormatted: "00:35:00", TotalCalories: 310, AverageDistancePerRun: 4.88}},
		{"trace laps", laps, models.Statistics{TotalDistanceKm: 2.0, TotalTimeFormatted: "00:10:01", TotalCalories: 120, AverageDistancePerRun: 2.0}},
		{"summary over laps", both, models.Statistics{TotalDistanceKm: 1.0, TotalTimeFormatted: "00:05:00", TotalCalories: 50, AverageDistancePerRun: 1.0}},
		{"binary stub only", stubOnly, models.Statistics{TotalTimeFormatted: "00:00:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute([]models.Activity{tt.activity}))
		})
	}
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, models.Statistics{TotalTimeFormatted: "00:00:00"}, Compute(nil))
}

func TestCompute_AdditiveAcrossPartitions(t *testing.T) {
	var all []models.Activity
	for i := 0; i < 9; i++ {
		all = append(all, withSummary(float64(i)+0.33, "00:31:07", float64(100+i)))
	}
	a, b := all[:4], all[4:]

	global := Compute(all)
	left, right := Compute(a), Compute(b)

	assert.Equal(t, global.TotalCalories, left.TotalCalories+right.TotalCalories)
	assert.InDelta(t, global.TotalDistanceKm, left.TotalDistanceKm+right.TotalDistanceKm, 0.011)
	assert.Equal(t, ParseDuration(global.TotalTimeFormatted),
		ParseDuration(left.TotalTimeFormatted)+ParseDuration(right.TotalTimeFormatted))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"00:35:00", 2100},
		{"1:02:03", 3723},
		{"07:10", 430},
		{" 00:14:15 ", 855},
		{"invalid:time", 0},
		{"00:xx:30", 30},
		{"", 0},
		{"15", 0},
		{"1:2:3:4", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDuration(tt.in), "input %q", tt.in)
	}
}

func TestFormatDurationRoundTrip(t *testing.T) {
	for _, s := range []int64{0, 1, 59, 60, 3599, 3600, 86399, 360000, 1234567} {
		formatted := FormatDuration(s)
		assert.Equal(t, s, ParseDuration(formatted), "formatted %q", formatted)
	}
	assert.Equal(t, "00:56:00", FormatDuration(3360))
	assert.Equal(t, "100:00:00", FormatDuration(360000))
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.005000001, 1.01},
		{-2.345000001, -2.35},
		{4.88, 4.88},
		{0.004, 0},
		{-0.004, 0},
		{1.005, 1.01},
		{-1.005, -1.01},
		{2.675, 2.68},
		{1.115, 1.12},
		{0.125, 0.13},
		{1.0049, 1},
		{12.5, 12.5},
		{7, 7},
		{1e20, 1e20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
	assert.True(t, math.IsNaN(Round2(math.NaN())))
	assert.True(t, math.IsInf(Round2(math.Inf(1)), 1))
}
