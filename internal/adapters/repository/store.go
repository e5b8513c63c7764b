// Package repository defines the append-only score store and its
// implementations.
//
// Score records are never updated or deleted: every scoring run appends a
// new record, and "current score" means the latest record by ComputedAt for
// a (track, score type) pair. Any past score can therefore be reproduced
// and compared against the metric snapshot that produced it.
package repository

import (
	"context"

	"github.com/scoutbeat/scoutbeat/internal/domain/model"
)

// Store provides access to score history and track metadata.
//
// Append must be safe under concurrent use; appends for the same
// (track, score type) never corrupt history because ordering is by
// ComputedAt, not arrival.
type Store interface {
	// Append stores a new score record and returns its id. It never
	// overwrites an existing record.
	Append(ctx context.Context, rec model.ScoreRecord) (string, error)

	// Latest returns the most recent record for a (track, type) pair.
	// Returns ErrNotFound if no record exists.
	Latest(ctx context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error)

	// History returns all records for a (track, type) pair in
	// chronological order.
	History(ctx context.Context, trackID string, scoreType model.ScoreType) ([]model.ScoreRecord, error)

	// LatestByType returns the latest record per track for one score type.
	LatestByType(ctx context.Context, scoreType model.ScoreType) ([]model.ScoreRecord, error)

	// Track metadata. Unlike scores, metadata rows may be updated as
	// upstream corrections arrive.
	UpsertTrack(ctx context.Context, t model.Track) error
	GetTrack(ctx context.Context, id string) (model.Track, error)
	ListTracks(ctx context.Context) ([]model.Track, error)

	Close() error
}

// New opens a SQLite-backed store when path is non-empty, otherwise an
// in-memory store.
func New(ctx context.Context, path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(ctx, path)
}
