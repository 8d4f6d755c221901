package parser

import (
	"encoding/xml"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sstent/runlog-go/internal/models"
)

// TCXParser reads Training Center XML. Element names are matched in any
// namespace so both default-namespace and prefixed documents decode.
type TCXParser struct {
	maxTrackpoints int
}

func NewTCXParser(maxTrackpoints int) *TCXParser {
	return &TCXParser{maxTrackpoints: maxTrackpoints}
}

type tcxDatabase struct {
	Activities []tcxActivity `xml:"Activities>Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	ID    string   `xml:"Id"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	StartTime        string     `xml:"StartTime,attr"`
	TotalTimeSeconds *string    `xml:"TotalTimeSeconds"`
	DistanceMeters   *string    `xml:"DistanceMeters"`
	MaximumSpeed     *string    `xml:"MaximumSpeed"`
	Calories         *string    `xml:"Calories"`
	AverageHeartRate *tcxValue  `xml:"AverageHeartRateBpm"`
	MaximumHeartRate *tcxValue  `xml:"MaximumHeartRateBpm"`
	Intensity        *string    `xml:"Intensity"`
	TriggerMethod    *string    `xml:"TriggerMethod"`
	Tracks           []tcxTrack `xml:"Track"`
}

type tcxValue struct {
	Value *string `xml:"Value"`
}

type tcxTrack struct {
	Trackpoints []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxTrackpoint struct {
	Time           *string        `xml:"Time"`
	Position       *tcxPosition   `xml:"Position"`
	AltitudeMeters *string        `xml:"AltitudeMeters"`
	DistanceMeters *string        `xml:"DistanceMeters"`
	HeartRateBpm   *tcxValue      `xml:"HeartRateBpm"`
	Extensions     *tcxExtensions `xml:"Extensions"`
}

type tcxPosition struct {
	LatitudeDegrees  *string `xml:"LatitudeDegrees"`
	LongitudeDegrees *string `xml:"LongitudeDegrees"`
}

// Speed shows up either directly under Extensions or inside the
// ActivityExtension TPX element.
type tcxExtensions struct {
	Speed *string `xml:"Speed"`
	TPX   *struct {
		Speed *string `xml:"Speed"`
	} `xml:"TPX"`
}

func (p *TCXParser) Parse(src Source) (models.Fragment, error) {
	data, err := p.ParseDocument(src.Data)
	if err != nil {
		return nil, err
	}

	date := DateFromActivityID(data.ActivityID)
	if date == "" {
		date = DateFromName(src.Name)
	}

	return &models.TraceFragment{
		File: filepath.Base(src.Name),
		Date: date,
		Data: *data,
	}, nil
}

// ParseDocument decodes laps and trackpoints in document order. Trackpoints
// without any reading are dropped before stride sampling.
func (p *TCXParser) ParseDocument(data []byte) (*models.TraceData, error) {
	var doc tcxDatabase
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXML, err)
	}

	result := &models.TraceData{
		Laps:        []models.Lap{},
		Trackpoints: []models.Trackpoint{},
	}
	if len(doc.Activities) > 0 {
		result.ActivityType = doc.Activities[0].Sport
		result.ActivityID = strings.TrimSpace(doc.Activities[0].ID)
	}

	var points []models.Trackpoint
	for _, activity := range doc.Activities {
		for _, lap := range activity.Laps {
			result.Laps = append(result.Laps, convertLap(lap))
			for _, track := range lap.Tracks {
				for _, tp := range track.Trackpoints {
					point := convertTrackpoint(tp)
					if point.HasReadings() {
						points = append(points, point)
					}
				}
			}
		}
	}

	if len(points) > 0 {
		result.Trackpoints = Sample(points, p.maxTrackpoints)
	}
	return result, nil
}

func convertLap(lap tcxLap) models.Lap {
	out := models.Lap{
		StartTime:        lap.StartTime,
		TotalTimeSeconds: floatOrZero(lap.TotalTimeSeconds),
		DistanceMeters:   floatOrZero(lap.DistanceMeters),
		MaxSpeed:         floatOrZero(lap.MaximumSpeed),
	}
	if calories := parseInt(lap.Calories); calories != nil {
		out.Calories = *calories
	}
	if lap.AverageHeartRate != nil {
		out.AvgHR = parseInt(lap.AverageHeartRate.Value)
	}
	if lap.MaximumHeartRate != nil {
		out.MaxHR = parseInt(lap.MaximumHeartRate.Value)
	}
	if lap.Intensity != nil {
		out.Intensity = strings.TrimSpace(*lap.Intensity)
	}
	if lap.TriggerMethod != nil {
		out.TriggerMethod = strings.TrimSpace(*lap.TriggerMethod)
	}
	return out
}

func convertTrackpoint(tp tcxTrackpoint) models.Trackpoint {
	var out models.Trackpoint
	if tp.Time != nil {
		out.Time = strings.TrimSpace(*tp.Time)
	}

	if tp.Position != nil {
		lat := parseFloat(tp.Position.LatitudeDegrees)
		lon := parseFloat(tp.Position.LongitudeDegrees)
		if lat != nil && lon != nil {
			out.Position = &models.Position{Lat: *lat, Lon: *lon}
		}
	}

	out.AltitudeM = parseFloat(tp.AltitudeMeters)
	out.DistanceM = parseFloat(tp.DistanceMeters)
	if tp.HeartRateBpm != nil {
		out.HeartRate = parseInt(tp.HeartRateBpm.Value)
	}

	if ext := tp.Extensions; ext != nil {
		out.SpeedMS = parseFloat(ext.Speed)
		if out.SpeedMS == nil && ext.TPX != nil {
			out.SpeedMS = parseFloat(ext.TPX.Speed)
		}
	}
	return out
}

// parseFloat returns nil for absent, unparseable or non-finite text.
func parseFloat(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseInt(s *string) *int {
	f := parseFloat(s)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

func floatOrZero(s *string) float64 {
	if f := parseFloat(s); f != nil {
		return *f
	}
	return 0
}
