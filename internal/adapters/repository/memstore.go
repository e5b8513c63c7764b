package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/pkg/metrics"
)

type seriesKey struct {
	trackID   string
	scoreType model.ScoreType
}

// MemoryStore implements Store in memory. History slices are kept sorted by
// ComputedAt so reads never re-sort.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[seriesKey][]model.ScoreRecord
	tracks map[string]model.Track
	ids    map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores: make(map[seriesKey][]model.ScoreRecord),
		tracks: make(map[string]model.Track),
		ids:    make(map[string]struct{}),
	}
}

// Append stores rec, assigning an id when none is set.
func (s *MemoryStore) Append(_ context.Context, rec model.ScoreRecord) (string, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppend(float64(time.Since(start).Milliseconds()))
	}()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[rec.ID]; exists {
		metrics.RecordStoreError()
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	s.ids[rec.ID] = struct{}{}

	key := seriesKey{rec.TrackID, rec.Type}
	history := s.scores[key]

	// Insert in ComputedAt order; arrival order does not decide history.
	i := sort.Search(len(history), func(i int) bool {
		if !history[i].ComputedAt.Equal(rec.ComputedAt) {
			return history[i].ComputedAt.After(rec.ComputedAt)
		}
		return history[i].ID > rec.ID
	})
	history = append(history, model.ScoreRecord{})
	copy(history[i+1:], history[i:])
	history[i] = rec
	s.scores[key] = history

	return rec.ID, nil
}

// Latest returns the most recent record for the pair.
func (s *MemoryStore) Latest(_ context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.scores[seriesKey{trackID, scoreType}]
	if len(history) == 0 {
		return model.ScoreRecord{}, fmt.Errorf("%w: %s/%s", ErrNotFound, trackID, scoreType)
	}
	return history[len(history)-1], nil
}

// History returns the chronological record sequence for the pair.
func (s *MemoryStore) History(_ context.Context, trackID string, scoreType model.ScoreType) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.scores[seriesKey{trackID, scoreType}]
	out := make([]model.ScoreRecord, len(history))
	copy(out, history)
	return out, nil
}

// LatestByType returns the latest record per track for one score type.
func (s *MemoryStore) LatestByType(_ context.Context, scoreType model.ScoreType) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScoreRecord
	for key, history := range s.scores {
		if key.scoreType == scoreType && len(history) > 0 {
			out = append(out, history[len(history)-1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out, nil
}

// UpsertTrack inserts or updates track metadata, preserving FirstSeen.
func (s *MemoryStore) UpsertTrack(_ context.Context, t model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tracks[t.ID]; ok && !existing.FirstSeen.IsZero() {
		t.FirstSeen = existing.FirstSeen
	} else if t.FirstSeen.IsZero() {
		t.FirstSeen = time.Now().UTC()
	}
	s.tracks[t.ID] = t
	metrics.UpdateTracksTracked(len(s.tracks))
	return nil
}

// GetTrack returns the metadata row for a track.
func (s *MemoryStore) GetTrack(_ context.Context, id string) (model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tracks[id]
	if !ok {
		return model.Track{}, fmt.Errorf("%w: track %s", ErrNotFound, id)
	}
	return t, nil
}

// ListTracks returns all metadata rows ordered by id.
func (s *MemoryStore) ListTracks(_ context.Context) ([]model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close releases nothing for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
