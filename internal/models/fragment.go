package models

import "encoding/json"

// Fragment is the parsed payload of one source file, before merging.
// It is implemented by *RowFragment, *TraceFragment and *BinaryFragment.
type Fragment interface {
	Kind() SourceKind
	FileName() string
	// DateHint is the YYYYMMDD date the parser could attribute to the file,
	// or "" when none was found.
	DateHint() string
	// Usable reports whether the fragment carries real data. Degraded
	// fragments are attached to an activity but never create one.
	Usable() bool
}

// Split is one cleaned row of the split table. Values are float64 when the
// source text was numeric and string otherwise.
type Split map[string]any

// RowData is the Row Parser output.
type RowData struct {
	Splits  []Split `json:"splits"`
	Summary Split   `json:"summary,omitempty"`
}

type RowFragment struct {
	File string  `json:"file"`
	Date string  `json:"-"`
	Data RowData `json:"data"`
}

func (f *RowFragment) Kind() SourceKind { return SourceCSV }
func (f *RowFragment) FileName() string { return f.File }
func (f *RowFragment) DateHint() string { return f.Date }
func (f *RowFragment) Usable() bool     { return true }

// Position is a WGS84 coordinate in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Lap is one segment from the trace or binary source.
type Lap struct {
	StartTime           string   `json:"start_time,omitempty"`
	TotalTimeSeconds    float64  `json:"total_time_seconds"`
	TotalElapsedSeconds *float64 `json:"total_elapsed_seconds,omitempty"`
	DistanceMeters      float64  `json:"distance_meters"`
	MaxSpeed            float64  `json:"max_speed"`
	AvgSpeed            *float64 `json:"avg_speed,omitempty"`
	Calories            int      `json:"calories"`
	AvgHR               *int     `json:"avg_hr,omitempty"`
	MaxHR               *int     `json:"max_hr,omitempty"`
	Intensity           string   `json:"intensity,omitempty"`
	TriggerMethod       string   `json:"trigger_method,omitempty"`
}

// Trackpoint is one sampled instant of the trace. Absent readings stay nil
// so that a missing heart rate is never reported as zero.
type Trackpoint struct {
	Time      string    `json:"time,omitempty"`
	Position  *Position `json:"position,omitempty"`
	AltitudeM *float64  `json:"altitude_m,omitempty"`
	DistanceM *float64  `json:"distance_m,omitempty"`
	HeartRate *int      `json:"heart_rate,omitempty"`
	SpeedMS   *float64  `json:"speed_ms,omitempty"`
}

// HasReadings reports whether the trackpoint carries anything beyond a time.
func (t Trackpoint) HasReadings() bool {
	return t.Position != nil || t.AltitudeM != nil || t.DistanceM != nil ||
		t.HeartRate != nil || t.SpeedMS != nil
}

// TraceOverview records the trace's size once its trackpoints are dropped.
type TraceOverview struct {
	TotalTrackpoints int `json:"total_trackpoints"`
	TotalLaps        int `json:"total_laps"`
}

// TraceData is the Trace Parser output.
type TraceData struct {
	ActivityType string         `json:"activity_type,omitempty"`
	ActivityID   string         `json:"activity_id,omitempty"`
	Laps         []Lap          `json:"laps"`
	Trackpoints  []Trackpoint   `json:"trackpoints"`
	Overview     *TraceOverview `json:"overview,omitempty"`
}

type TraceFragment struct {
	File string    `json:"file"`
	Date string    `json:"-"`
	Data TraceData `json:"data"`
}

func (f *TraceFragment) Kind() SourceKind { return SourceTCX }
func (f *TraceFragment) FileName() string { return f.File }
func (f *TraceFragment) DateHint() string { return f.Date }
func (f *TraceFragment) Usable() bool     { return true }

// Record is one sensor sample from the binary stream.
type Record struct {
	Timestamp string    `json:"timestamp,omitempty"`
	Position  *Position `json:"position,omitempty"`
	AltitudeM *float64  `json:"altitude_m,omitempty"`
	DistanceM *float64  `json:"distance_m,omitempty"`
	HeartRate *int      `json:"heart_rate,omitempty"`
	Cadence   *int      `json:"cadence,omitempty"`
	SpeedMS   *float64  `json:"speed_ms,omitempty"`
	Power     *int      `json:"power,omitempty"`
}

// Session is the whole-activity summary message of the binary stream.
type Session struct {
	Sport               string   `json:"sport,omitempty"`
	SubSport            string   `json:"sub_sport,omitempty"`
	StartTime           string   `json:"start_time,omitempty"`
	TotalElapsedSeconds float64  `json:"total_elapsed_seconds"`
	TotalTimerSeconds   float64  `json:"total_timer_seconds"`
	TotalDistanceM      float64  `json:"total_distance_m"`
	TotalCalories       int      `json:"total_calories"`
	AvgHR               *int     `json:"avg_hr,omitempty"`
	MaxHR               *int     `json:"max_hr,omitempty"`
	AvgSpeed            *float64 `json:"avg_speed,omitempty"`
	MaxSpeed            *float64 `json:"max_speed,omitempty"`
	AvgCadence          *int     `json:"avg_cadence,omitempty"`
	AvgPower            *int     `json:"avg_power,omitempty"`
	TotalAscent         *int     `json:"total_ascent,omitempty"`
	TotalDescent        *int     `json:"total_descent,omitempty"`
}

// BinaryData is the Binary Parser output. When Note is set the payload is a
// degraded stub and only the note is serialized.
type BinaryData struct {
	Records []Record `json:"records"`
	Laps    []Lap    `json:"laps"`
	Session *Session `json:"session"`
	Note    string   `json:"note,omitempty"`
}

func (d BinaryData) MarshalJSON() ([]byte, error) {
	if d.Note != "" {
		return json.Marshal(struct {
			Note string `json:"note"`
		}{d.Note})
	}
	type plain BinaryData
	return json.Marshal(plain(d))
}

type BinaryFragment struct {
	File string     `json:"file"`
	Date string     `json:"-"`
	Data BinaryData `json:"data"`
}

func (f *BinaryFragment) Kind() SourceKind { return SourceFIT }
func (f *BinaryFragment) FileName() string { return f.File }
func (f *BinaryFragment) DateHint() string { return f.Date }
func (f *BinaryFragment) Usable() bool     { return f.Data.Note == "" }
