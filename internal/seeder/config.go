package seeder

import "time"

// Config holds configuration for the snapshot seeder.
type Config struct {
	BaseURL   string        // Base URL of the service
	NumTracks int           // Number of synthetic tracks to generate
	Workers   int           // Number of concurrent submitters
	Timeout   time.Duration // HTTP request timeout
	TopN      int           // Number of ranked entries to fetch afterwards
	Verbose   bool          // Enable verbose logging
}

// Snapshot mirrors the POST /snapshots request schema.
type Snapshot struct {
	TrackID   string  `json:"track_id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	LabelText string  `json:"label_text"`
	Points    []Point `json:"points"`
}

// Point mirrors one metric observation in the request schema.
type Point struct {
	Platform string  `json:"platform"`
	Metric   string  `json:"metric"`
	TS       string  `json:"ts"`
	Value    float64 `json:"value"`
}

// AckResponse mirrors the response from snapshot submission.
type AckResponse struct {
	Status string   `json:"status"`
	JobIDs []string `json:"job_ids"`
}

// RankedEntry mirrors one entry of the GET /tracks response.
type RankedEntry struct {
	Rank  int `json:"rank"`
	Track struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Artist string `json:"artist"`
	} `json:"track"`
	Record struct {
		Value     float64  `json:"value"`
		Summary   string   `json:"summary"`
		RiskFlags []string `json:"risk_flags"`
	} `json:"record"`
	Label string `json:"label"`
}

// Stats holds seeding statistics.
type Stats struct {
	StartTime  time.Time
	Generated  int
	Successful int64
	Failed     int64
}
