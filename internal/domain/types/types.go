// Package types contains common read shapes shared between the service
// and the HTTP API.
package types

import (
	"time"

	"github.com/scoutbeat/scoutbeat/internal/domain/label"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
)

// RankedTrack pairs a track's metadata with its latest score record and
// classified label category.
type RankedTrack struct {
	Rank   int               `json:"rank"`
	Track  model.Track       `json:"track"`
	Record model.ScoreRecord `json:"record"`
	Label  label.Category    `json:"label"`
}

// Stats is a point-in-time view of pipeline state.
type Stats struct {
	TracksTracked int           `json:"tracks_tracked"`
	QueueDepth    int           `json:"queue_depth"`
	WorkerCount   int           `json:"worker_count"`
	Uptime        time.Duration `json:"uptime"`
}
