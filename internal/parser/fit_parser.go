package parser

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/tormoder/fit"

	"github.com/sstent/runlog-go/internal/models"
)

const noteDecoderDisabled = "FIT decoding disabled; file recorded without data"

// FITParser decodes the binary activity stream. It never fails: anything the
// decoder cannot handle becomes a degraded fragment carrying a note.
type FITParser struct {
	decode     bool
	maxRecords int
}

func NewFITParser(decode bool, maxRecords int) *FITParser {
	return &FITParser{decode: decode, maxRecords: maxRecords}
}

func (p *FITParser) Parse(src Source) (models.Fragment, error) {
	frag := &models.BinaryFragment{File: filepath.Base(src.Name)}

	if !p.decode {
		frag.Data = models.BinaryData{Note: noteDecoderDisabled}
		frag.Date = DateFromName(src.Name)
		return frag, nil
	}

	data, hint, err := p.ParseData(src.Data)
	if err != nil {
		frag.Data = models.BinaryData{Note: err.Error()}
		frag.Date = DateFromName(src.Name)
		return frag, nil
	}

	frag.Data = *data
	frag.Date = hint
	if frag.Date == "" {
		frag.Date = DateFromName(src.Name)
	}
	return frag, nil
}

// ParseData decodes records, laps and the first session. The returned date
// comes from the session start, then the file creation time.
func (p *FITParser) ParseData(data []byte) (*models.BinaryData, string, error) {
	fitFile, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode FIT file: %w", err)
	}

	activity, err := fitFile.Activity()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get activity from FIT: %w", err)
	}

	result := &models.BinaryData{
		Records: []models.Record{},
		Laps:    []models.Lap{},
	}

	records := make([]models.Record, 0, len(activity.Records))
	for _, r := range activity.Records {
		if r == nil {
			continue
		}
		records = append(records, convertRecord(r))
	}
	if len(records) > 0 {
		result.Records = Sample(records, p.maxRecords)
	}

	for _, l := range activity.Laps {
		if l == nil {
			continue
		}
		result.Laps = append(result.Laps, convertFITLap(l))
	}

	date := ""
	if len(activity.Sessions) > 0 && activity.Sessions[0] != nil {
		session := activity.Sessions[0]
		result.Session = convertSession(session)
		date = DateFromTime(session.StartTime)
	}
	if date == "" {
		date = DateFromTime(fitFile.FileId.TimeCreated)
	}

	return result, date, nil
}

func convertRecord(r *fit.RecordMsg) models.Record {
	out := models.Record{
		Timestamp: formatTime(r.Timestamp),
		AltitudeM: scaled(r.GetEnhancedAltitudeScaled()),
		DistanceM: scaled(r.GetDistanceScaled()),
		SpeedMS:   scaled(r.GetEnhancedSpeedScaled()),
		HeartRate: uint8Value(r.HeartRate),
		Cadence:   uint8Value(r.Cadence),
		Power:     uint16Value(r.Power),
	}
	if out.AltitudeM == nil {
		out.AltitudeM = scaled(r.GetAltitudeScaled())
	}
	if out.SpeedMS == nil {
		out.SpeedMS = scaled(r.GetSpeedScaled())
	}
	if !r.PositionLat.Invalid() && !r.PositionLong.Invalid() {
		out.Position = &models.Position{
			Lat: r.PositionLat.Degrees(),
			Lon: r.PositionLong.Degrees(),
		}
	}
	return out
}

func convertFITLap(l *fit.LapMsg) models.Lap {
	out := models.Lap{
		StartTime:           formatTime(l.StartTime),
		TotalTimeSeconds:    zeroIfNaN(l.GetTotalTimerTimeScaled()),
		TotalElapsedSeconds: scaled(l.GetTotalElapsedTimeScaled()),
		DistanceMeters:      zeroIfNaN(l.GetTotalDistanceScaled()),
		MaxSpeed:            zeroIfNaN(l.GetMaxSpeedScaled()),
		AvgSpeed:            scaled(l.GetAvgSpeedScaled()),
		AvgHR:               uint8Value(l.AvgHeartRate),
		MaxHR:               uint8Value(l.MaxHeartRate),
	}
	if calories := uint16Value(l.TotalCalories); calories != nil {
		out.Calories = *calories
	}
	if l.Intensity != fit.IntensityInvalid {
		out.Intensity = l.Intensity.String()
	}
	if l.LapTrigger != fit.LapTriggerInvalid {
		out.TriggerMethod = l.LapTrigger.String()
	}
	return out
}

func convertSession(s *fit.SessionMsg) *models.Session {
	out := &models.Session{
		StartTime:           formatTime(s.StartTime),
		TotalElapsedSeconds: zeroIfNaN(s.GetTotalElapsedTimeScaled()),
		TotalTimerSeconds:   zeroIfNaN(s.GetTotalTimerTimeScaled()),
		TotalDistanceM:      zeroIfNaN(s.GetTotalDistanceScaled()),
		AvgHR:               uint8Value(s.AvgHeartRate),
		MaxHR:               uint8Value(s.MaxHeartRate),
		AvgSpeed:            scaled(s.GetAvgSpeedScaled()),
		MaxSpeed:            scaled(s.GetMaxSpeedScaled()),
		AvgCadence:          uint8Value(s.AvgCadence),
		AvgPower:            uint16Value(s.AvgPower),
		TotalAscent:         uint16Value(s.TotalAscent),
		TotalDescent:        uint16Value(s.TotalDescent),
	}
	if s.Sport != fit.SportInvalid {
		out.Sport = s.Sport.String()
	}
	if s.SubSport != fit.SubSportInvalid {
		out.SubSport = s.SubSport.String()
	}
	if calories := uint16Value(s.TotalCalories); calories != nil {
		out.TotalCalories = *calories
	}
	return out
}

func formatTime(t time.Time) string {
	if DateFromTime(t) == "" {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// scaled maps the decoder's NaN "not set" marker to nil.
func scaled(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func uint8Value(v uint8) *int {
	if v == math.MaxUint8 {
		return nil
	}
	i := int(v)
	return &i
}

func uint16Value(v uint16) *int {
	if v == math.MaxUint16 {
		return nil
	}
	i := int(v)
	return &i
}
