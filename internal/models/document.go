package models

// Statistics are aggregate totals over a set of activities.
type Statistics struct {
	TotalDistanceKm       float64 `json:"total_distance_km"`
	TotalTimeFormatted    string  `json:"total_time_formatted"`
	TotalCalories         int     `json:"total_calories"`
	AverageDistancePerRun float64 `json:"average_distance_per_run"`
}

type DateRange struct {
	FirstActivity string `json:"first_activity"`
	LastActivity  string `json:"last_activity"`
}

// Chunk is a contiguous, date-ordered slice of activities.
type Chunk struct {
	Descriptor ChunkDescriptor
	Activities []Activity
}

// ChunkDescriptor summarizes one chunk in the index document.
type ChunkDescriptor struct {
	File          string     `json:"file,omitempty"`
	ChunkNumber   int        `json:"chunk_number"`
	ActivityCount int        `json:"activity_count"`
	DateRange     DateRange  `json:"date_range"`
	Statistics    Statistics `json:"statistics"`
}

// TrainingLog is the consolidated output written when chunking is off.
type TrainingLog struct {
	Metadata   LogMetadata `json:"metadata"`
	Activities []Activity  `json:"activities"`
	Statistics Statistics  `json:"statistics"`
}

type LogMetadata struct {
	AthleteName     string    `json:"athlete_name"`
	CreatedAt       string    `json:"created_at"`
	RunID           string    `json:"run_id"`
	TotalActivities int       `json:"total_activities"`
	DataSource      string    `json:"data_source"`
	Purpose         string    `json:"purpose"`
	DateRange       DateRange `json:"date_range"`
}

// ChunkDocument is one chunk file.
type ChunkDocument struct {
	Metadata   ChunkMetadata `json:"metadata"`
	Activities []Activity    `json:"activities"`
}

type ChunkMetadata struct {
	ChunkNumber   int        `json:"chunk_number"`
	TotalChunks   int        `json:"total_chunks"`
	ActivityCount int        `json:"activity_count"`
	Statistics    Statistics `json:"statistics"`
	DateRange     DateRange  `json:"date_range"`
	CreatedAt     string     `json:"created_at"`
	RunID         string     `json:"run_id"`
}

// Index describes every chunk written by one aggregation run.
type Index struct {
	Metadata IndexMetadata     `json:"metadata"`
	Chunks   []ChunkDescriptor `json:"chunks"`
}

type IndexMetadata struct {
	CreatedAt       string `json:"created_at"`
	RunID           string `json:"run_id"`
	TotalChunks     int    `json:"total_chunks"`
	TotalActivities int    `json:"total_activities"`
}
