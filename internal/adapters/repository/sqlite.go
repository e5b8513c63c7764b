package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/pkg/metrics"
)

// SQLiteStore implements Store using SQLite via sqlx.
type SQLiteStore struct {
	db *sqlx.DB
}

// scoreRow mirrors the score_records table. Components and the string
// slices are JSON-encoded in their columns.
type scoreRow struct {
	ID          string    `db:"id"`
	TrackID     string    `db:"track_id"`
	ScoreType   string    `db:"score_type"`
	Value       float64   `db:"value"`
	Components  string    `db:"components"`
	WhySelected string    `db:"why_selected"`
	RiskFlags   string    `db:"risk_flags"`
	Summary     string    `db:"summary"`
	ComputedAt  time.Time `db:"computed_at"`
}

type trackRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Artist    string    `db:"artist"`
	LabelText string    `db:"label_text"`
	FirstSeen time.Time `db:"first_seen"`
}

// NewSQLiteStore opens (creating if needed) a SQLite database and runs
// migrations.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts a new score record, assigning an id when none is set.
func (s *SQLiteStore) Append(ctx context.Context, rec model.ScoreRecord) (string, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppend(float64(time.Since(start).Milliseconds()))
	}()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	components, err := json.Marshal(rec.Components)
	if err != nil {
		return "", fmt.Errorf("encode components: %w", err)
	}
	why, err := json.Marshal(rec.WhySelected)
	if err != nil {
		return "", fmt.Errorf("encode why_selected: %w", err)
	}
	flags, err := json.Marshal(rec.RiskFlags)
	if err != nil {
		return "", fmt.Errorf("encode risk_flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO score_records (id, track_id, score_type, value, components, why_selected, risk_flags, summary, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TrackID, string(rec.Type), rec.Value,
		string(components), string(why), string(flags), rec.Summary, rec.ComputedAt.UTC())
	if err != nil {
		metrics.RecordStoreError()
		return "", fmt.Errorf("append score record %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// Latest returns the most recent record for the pair.
func (s *SQLiteStore) Latest(ctx context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error) {
	var row scoreRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM score_records
		WHERE track_id = ? AND score_type = ?
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`, trackID, string(scoreType))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreRecord{}, fmt.Errorf("%w: %s/%s", ErrNotFound, trackID, scoreType)
	}
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("latest score for %s: %w", trackID, err)
	}
	return row.toRecord()
}

// History returns the chronological record sequence for the pair.
func (s *SQLiteStore) History(ctx context.Context, trackID string, scoreType model.ScoreType) ([]model.ScoreRecord, error) {
	var rows []scoreRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM score_records
		WHERE track_id = ? AND score_type = ?
		ORDER BY computed_at ASC, id ASC
	`, trackID, string(scoreType))
	if err != nil {
		return nil, fmt.Errorf("score history for %s: %w", trackID, err)
	}

	out := make([]model.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// LatestByType returns the latest record per track for one score type.
func (s *SQLiteStore) LatestByType(ctx context.Context, scoreType model.ScoreType) ([]model.ScoreRecord, error) {
	var rows []scoreRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM score_records
		WHERE score_type = ?
		ORDER BY computed_at ASC, id ASC
	`, string(scoreType))
	if err != nil {
		return nil, fmt.Errorf("latest scores by type %s: %w", scoreType, err)
	}

	latest := make(map[string]scoreRow, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, seen := latest[row.TrackID]; !seen {
			order = append(order, row.TrackID)
		}
		latest[row.TrackID] = row
	}

	out := make([]model.ScoreRecord, 0, len(latest))
	for _, trackID := range order {
		rec, err := latest[trackID].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpsertTrack inserts or updates track metadata, preserving first_seen.
func (s *SQLiteStore) UpsertTrack(ctx context.Context, t model.Track) error {
	if t.FirstSeen.IsZero() {
		t.FirstSeen = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, title, artist, label_text, first_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			label_text = excluded.label_text
	`, t.ID, t.Title, t.Artist, t.LabelText, t.FirstSeen.UTC())
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("upsert track %s: %w", t.ID, err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tracks`); err == nil {
		metrics.UpdateTracksTracked(count)
	}
	return nil
}

// GetTrack returns the metadata row for a track.
func (s *SQLiteStore) GetTrack(ctx context.Context, id string) (model.Track, error) {
	var row trackRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM tracks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Track{}, fmt.Errorf("%w: track %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Track{}, fmt.Errorf("get track %s: %w", id, err)
	}
	return model.Track(row), nil
}

// ListTracks returns all metadata rows ordered by id.
func (s *SQLiteStore) ListTracks(ctx context.Context) ([]model.Track, error) {
	var rows []trackRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM tracks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}

	out := make([]model.Track, len(rows))
	for i, row := range rows {
		out[i] = model.Track(row)
	}
	return out, nil
}

func (r scoreRow) toRecord() (model.ScoreRecord, error) {
	rec := model.ScoreRecord{
		ID:         r.ID,
		TrackID:    r.TrackID,
		Type:       model.ScoreType(r.ScoreType),
		Value:      r.Value,
		Summary:    r.Summary,
		ComputedAt: r.ComputedAt,
	}
	if err := json.Unmarshal([]byte(r.Components), &rec.Components); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("decode components for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.WhySelected), &rec.WhySelected); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("decode why_selected for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.RiskFlags), &rec.RiskFlags); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("decode risk_flags for %s: %w", r.ID, err)
	}
	return rec, nil
}
