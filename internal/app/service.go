// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// The service owns the full scoring pipeline: snapshots come in over
// SubmitSnapshot, get fanned out as one job per score type onto the
// bounded queue, and workers call back into ComputeScore to run
// extraction, gating, scoring and explanation before the record is
// appended to the store.
package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/scoutbeat/scoutbeat/internal/adapters/mq/queue"
	workerpool "github.com/scoutbeat/scoutbeat/internal/adapters/mq/worker"
	"github.com/scoutbeat/scoutbeat/internal/adapters/repository"
	"github.com/scoutbeat/scoutbeat/internal/domain/explain"
	"github.com/scoutbeat/scoutbeat/internal/domain/feature"
	"github.com/scoutbeat/scoutbeat/internal/domain/label"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/internal/domain/scoring"
	"github.com/scoutbeat/scoutbeat/internal/domain/types"
	"github.com/scoutbeat/scoutbeat/pkg/cache"
	"github.com/scoutbeat/scoutbeat/pkg/logger"
	"github.com/scoutbeat/scoutbeat/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize    = 10_000
	defaultWorkerCount  = 4
	defaultMaxListLimit = 200
	defaultListTTL      = 30 * time.Second
	defaultFilteredTTL  = 2 * time.Minute
)

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	queue      jobqueue.Queue
	pool       *workerpool.Pool
	listCache  *cache.Cache
	extractor  *feature.Extractor
	models     map[model.ScoreType]scoring.Model
	classifier *label.Classifier
	generator  *explain.Generator

	// Configuration
	storePath    string
	queueSize    int
	workerCount  int
	maxListLimit int
	listTTL      time.Duration
	filteredTTL  time.Duration

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStorePath selects the SQLite database file. Empty keeps the
// in-memory store.
func WithStorePath(path string) Option {
	return func(s *Service) {
		s.storePath = path
	}
}

// WithStore injects a pre-built store, bypassing WithStorePath.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithQueueSize bounds the scoring job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithMaxListLimit caps the limit parameter on ranked track listings.
func WithMaxListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// WithListTTLs sets how long ranked listings stay cached: one TTL for
// plain listings, a longer one for label-filtered listings, which cost a
// classification pass per track.
func WithListTTLs(list, filtered time.Duration) Option {
	return func(s *Service) {
		if list > 0 {
			s.listTTL = list
		}
		if filtered > 0 {
			s.filteredTTL = filtered
		}
	}
}

// WithModels replaces the default scoring models.
func WithModels(models ...scoring.Model) Option {
	return func(s *Service) {
		for _, m := range models {
			if m != nil {
				s.models[m.Type()] = m
			}
		}
	}
}

// WithExtractor sets a custom feature extractor.
func WithExtractor(e *feature.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithClassifier sets a custom label classifier.
func WithClassifier(c *label.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithGenerator sets a custom explanation generator.
func WithGenerator(g *explain.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a service with configuration options. Default models are
// built from the shipped weight tables, which always validate.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		models:       make(map[model.ScoreType]scoring.Model),
		queueSize:    defaultQueueSize,
		workerCount:  defaultWorkerCount,
		maxListLimit: defaultMaxListLimit,
		listTTL:      defaultListTTL,
		filteredTTL:  defaultFilteredTTL,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.extractor == nil {
		s.extractor = feature.NewExtractor()
	}
	if s.classifier == nil {
		s.classifier = label.NewClassifier()
	}
	if s.generator == nil {
		s.generator = explain.NewGenerator()
	}

	if _, ok := s.models[model.ScoreTypeTrending]; !ok {
		m, err := scoring.NewTrendingModel()
		if err != nil {
			return nil, fmt.Errorf("default trending model: %w", err)
		}
		s.models[model.ScoreTypeTrending] = m
	}
	if _, ok := s.models[model.ScoreTypeEvergreen]; !ok {
		m, err := scoring.NewEvergreenModel()
		if err != nil {
			return nil, fmt.Errorf("default evergreen model: %w", err)
		}
		s.models[model.ScoreTypeEvergreen] = m
	}

	s.listCache = cache.New()

	return s, nil
}

// Start opens the store and starts the worker pool. It is not safe to
// call concurrently with itself or Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.store == nil {
		st, err := repository.New(ctx, s.storePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.startedAt = time.Now()

	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("store", storeKind(s.storePath)),
	)
	return nil
}

// Stop drains the queue, stops the workers and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
	return nil
}

// SubmitSnapshot registers the track metadata and enqueues one scoring
// job per score type. It returns the job ids in trending, evergreen
// order.
func (s *Service) SubmitSnapshot(ctx context.Context, snap model.Snapshot) ([]string, error) {
	if snap.TrackID == "" {
		return nil, ErrMissingTrackID
	}
	if len(snap.Points) == 0 {
		return nil, ErrEmptySnapshot
	}

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	track := model.Track{
		ID:        snap.TrackID,
		Title:     snap.Title,
		Artist:    snap.Artist,
		LabelText: snap.LabelText,
	}
	if err := s.store.UpsertTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("register track %s: %w", snap.TrackID, err)
	}

	jobIDs := make([]string, 0, 2)
	for _, scoreType := range []model.ScoreType{model.ScoreTypeTrending, model.ScoreTypeEvergreen} {
		job := jobqueue.Job{
			JobID:      uuid.NewString(),
			Snapshot:   snap,
			ScoreType:  scoreType,
			EnqueuedAt: time.Now(),
		}
		if !s.queue.Enqueue(ctx, job) {
			return jobIDs, fmt.Errorf("%w: track %s type %s", ErrQueueFull, snap.TrackID, scoreType)
		}
		jobIDs = append(jobIDs, job.JobID)
	}

	s.logger.Debug(ctx, "snapshot accepted",
		logger.String("track", snap.TrackID),
		logger.Int("points", len(snap.Points)),
	)
	return jobIDs, nil
}

// ComputeScore runs the full pipeline for one (snapshot, score type)
// pair: extraction, gating, scoring, explanation. A gated track produces
// a zero-value record with risk flags, not an error.
func (s *Service) ComputeScore(ctx context.Context, snap model.Snapshot, scoreType model.ScoreType) (model.ScoreRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	}()

	m, ok := s.models[scoreType]
	if !ok {
		metrics.RecordScoringError()
		return model.ScoreRecord{}, fmt.Errorf("%w: %s", ErrUnknownModel, scoreType)
	}

	var vec feature.Vector
	switch scoreType {
	case model.ScoreTypeEvergreen:
		vec = s.extractor.EvergreenVector(ctx, snap)
	default:
		vec = s.extractor.TrendingVector(ctx, snap)
	}

	res, err := m.Score(ctx, vec)
	if err != nil {
		metrics.RecordScoringError()
		return model.ScoreRecord{}, fmt.Errorf("score track %s: %w", snap.TrackID, err)
	}
	for _, gate := range res.GateFailures {
		metrics.RecordGateFailure(string(scoreType), gate)
	}

	expl := s.generator.Explain(res, vec)

	rec, err := model.NewScoreRecord(
		uuid.NewString(),
		snap.TrackID,
		scoreType,
		res.Value,
		res.Components,
		expl.WhySelected,
		expl.RiskFlags,
		expl.Summary,
		time.Now().UTC(),
	)
	if err != nil {
		metrics.RecordScoringError()
		return model.ScoreRecord{}, fmt.Errorf("build record for track %s: %w", snap.TrackID, err)
	}

	metrics.RecordScoreComputed(string(scoreType))
	return rec, nil
}

// QueryTracks returns up to limit tracks ranked by their latest score of
// the given type, optionally filtered to one label category. Results are
// cached per (type, category, limit); filtered listings cache longer.
func (s *Service) QueryTracks(ctx context.Context, scoreType model.ScoreType, category label.Category, limit int) ([]types.RankedTrack, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > s.maxListLimit {
		limit = s.maxListLimit
	}

	ttl := s.listTTL
	if category != "" {
		ttl = s.filteredTTL
	}

	key := "tracks:" + string(scoreType) + ":" + string(category) + ":" + strconv.Itoa(limit)
	v, err := s.listCache.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (interface{}, error) {
		return s.rankTracks(ctx, scoreType, category, limit)
	})
	if err != nil {
		return nil, err
	}
	ranked, ok := v.([]types.RankedTrack)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type %T for %s", v, key)
	}
	return ranked, nil
}

// rankTracks builds one ranked listing from the store. Ordering is score
// descending, then newer record, then track id, so repeated queries over
// unchanged data return identical pages.
func (s *Service) rankTracks(ctx context.Context, scoreType model.ScoreType, category label.Category, limit int) ([]types.RankedTrack, error) {
	records, err := s.store.LatestByType(ctx, scoreType)
	if err != nil {
		return nil, fmt.Errorf("latest scores: %w", err)
	}

	tracks, err := s.store.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	byID := make(map[string]model.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	ranked := make([]types.RankedTrack, 0, len(records))
	for _, rec := range records {
		t := byID[rec.TrackID]
		if t.ID == "" {
			t = model.Track{ID: rec.TrackID}
		}
		cat := s.classifier.Classify(t.LabelText)
		if category != "" && cat != category {
			continue
		}
		ranked = append(ranked, types.RankedTrack{Track: t, Record: rec, Label: cat})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Record.Value != ranked[j].Record.Value {
			return ranked[i].Record.Value > ranked[j].Record.Value
		}
		if !ranked[i].Record.ComputedAt.Equal(ranked[j].Record.ComputedAt) {
			return ranked[i].Record.ComputedAt.After(ranked[j].Record.ComputedAt)
		}
		return ranked[i].Track.ID < ranked[j].Track.ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// LatestScore returns the most recent record for a (track, type) pair,
// which carries the full explanation of that score.
func (s *Service) LatestScore(ctx context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error) {
	return s.store.Latest(ctx, trackID, scoreType)
}

// ScoreHistory returns the chronological score records for a (track,
// type) pair.
func (s *Service) ScoreHistory(ctx context.Context, trackID string, scoreType model.ScoreType) ([]model.ScoreRecord, error) {
	return s.store.History(ctx, trackID, scoreType)
}

// GetTrack returns the stored metadata for a track.
func (s *Service) GetTrack(ctx context.Context, trackID string) (model.Track, error) {
	return s.store.GetTrack(ctx, trackID)
}

// ClassifyLabel classifies free-form label text into a category.
func (s *Service) ClassifyLabel(_ context.Context, texts ...string) label.Category {
	return s.classifier.Classify(texts...)
}

// ParseCategoryStrict maps a string to a category, rejecting anything
// that is not a known category name. Unlike label.ParseCategory it does
// not fall back to OtherUnsigned, so query filters fail loudly.
func ParseCategoryStrict(s string) (label.Category, error) {
	cat := label.ParseCategory(s)
	if cat == label.OtherUnsigned && label.Category(s) != label.OtherUnsigned {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return cat, nil
}

// MaxListLimit reports the configured cap on listing sizes.
func (s *Service) MaxListLimit() int {
	return s.maxListLimit
}

// Stats returns a point-in-time view of pipeline state.
func (s *Service) Stats(ctx context.Context) (types.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{WorkerCount: s.workerCount}
	if !s.started {
		return st, ErrNotStarted
	}

	st.QueueDepth = s.queue.Len(ctx)
	st.Uptime = time.Since(s.startedAt)

	tracks, err := s.store.ListTracks(ctx)
	if err != nil {
		return st, fmt.Errorf("list tracks: %w", err)
	}
	st.TracksTracked = len(tracks)
	return st, nil
}

func storeKind(path string) string {
	if path == "" {
		return "memory"
	}
	return "sqlite"
}
