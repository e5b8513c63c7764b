// Package scoring implements the two deterministic scoring models:
// trending (early momentum) and evergreen (long-term stability).
//
// Both models are weighted sums over a feature vector, clamped to [0,100],
// returned together with the exact per-feature contribution so every score
// can be reproduced by hand. Scores are never probabilistic: identical
// vectors always produce bit-identical results.
package scoring

import (
	"context"
	"math"

	"github.com/scoutbeat/scoutbeat/internal/domain/feature"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
)

const maxScoreValue = 100

// Result contains the bounded score and its component attribution.
// sum(Components) equals Value within floating-point tolerance. When any
// hard gate failed, Value is 0, Components is empty, and GateFailures
// names the gates that failed; a gated track never gets a partial score.
type Result struct {
	TrackID      string
	Type         model.ScoreType
	Value        float64
	Components   map[string]float64
	GateFailures []string
}

// Gated reports whether the computation was zeroed by a hard gate.
func (r Result) Gated() bool {
	return len(r.GateFailures) > 0
}

// Model scores a feature vector. Implementations are pure and safe for
// concurrent use.
type Model interface {
	Type() model.ScoreType
	Score(ctx context.Context, v feature.Vector) (Result, error)
}

// TrendingModel rewards accelerating recent engagement.
type TrendingModel struct {
	weights Weights
	gates   TrendingGates
}

// TrendingOption applies a configuration option to the TrendingModel.
type TrendingOption func(*TrendingModel)

// WithTrendingWeights overrides the default weight table.
func WithTrendingWeights(w Weights) TrendingOption {
	return func(m *TrendingModel) {
		if len(w) > 0 {
			m.weights = w.clone()
		}
	}
}

// WithTrendingGates overrides the default hard gates.
func WithTrendingGates(g TrendingGates) TrendingOption {
	return func(m *TrendingModel) {
		m.gates = g
	}
}

// NewTrendingModel builds a trending model, failing fast on a
// misconfigured weight table or gate set.
func NewTrendingModel(opts ...TrendingOption) (*TrendingModel, error) {
	m := &TrendingModel{
		weights: DefaultTrendingWeights(),
		gates:   DefaultTrendingGates(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.weights.Validate(); err != nil {
		return nil, err
	}
	if err := m.gates.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Type returns the score type this model produces.
func (m *TrendingModel) Type() model.ScoreType {
	return model.ScoreTypeTrending
}

// Weights returns a copy of the model's weight table.
func (m *TrendingModel) Weights() Weights {
	return m.weights.clone()
}

// Score computes the trending score for a feature vector.
func (m *TrendingModel) Score(_ context.Context, v feature.Vector) (Result, error) {
	r := Result{
		TrackID:    v.TrackID,
		Type:       model.ScoreTypeTrending,
		Components: map[string]float64{},
	}

	if v.TikTokPosts7d < m.gates.MinTikTokPosts7d {
		r.GateFailures = append(r.GateFailures, GateTikTokPosts7d)
	}
	if v.SpotifyStreams7d < m.gates.MinSpotifyStreams7d {
		r.GateFailures = append(r.GateFailures, GateSpotifyStreams7d)
	}
	if v.DataPoints < m.gates.MinDataPoints {
		r.GateFailures = append(r.GateFailures, GateDataPoints)
	}
	if r.Gated() {
		return r, nil
	}

	r.Value = combine(m.weights, v.Features, r.Components)
	return r, nil
}

// EvergreenModel rewards low-variance, long-duration engagement.
type EvergreenModel struct {
	weights Weights
	gates   EvergreenGates
}

// EvergreenOption applies a configuration option to the EvergreenModel.
type EvergreenOption func(*EvergreenModel)

// WithEvergreenWeights overrides the default weight table.
func WithEvergreenWeights(w Weights) EvergreenOption {
	return func(m *EvergreenModel) {
		if len(w) > 0 {
			m.weights = w.clone()
		}
	}
}

// WithEvergreenGates overrides the default hard gates.
func WithEvergreenGates(g EvergreenGates) EvergreenOption {
	return func(m *EvergreenModel) {
		m.gates = g
	}
}

// NewEvergreenModel builds an evergreen model, failing fast on a
// misconfigured weight table or gate set.
func NewEvergreenModel(opts ...EvergreenOption) (*EvergreenModel, error) {
	m := &EvergreenModel{
		weights: DefaultEvergreenWeights(),
		gates:   DefaultEvergreenGates(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.weights.Validate(); err != nil {
		return nil, err
	}
	if err := m.gates.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Type returns the score type this model produces.
func (m *EvergreenModel) Type() model.ScoreType {
	return model.ScoreTypeEvergreen
}

// Weights returns a copy of the model's weight table.
func (m *EvergreenModel) Weights() Weights {
	return m.weights.clone()
}

// Score computes the evergreen score for a feature vector.
func (m *EvergreenModel) Score(_ context.Context, v feature.Vector) (Result, error) {
	r := Result{
		TrackID:    v.TrackID,
		Type:       model.ScoreTypeEvergreen,
		Components: map[string]float64{},
	}

	if v.ActiveMonths < m.gates.MinActiveMonths {
		r.GateFailures = append(r.GateFailures, GateActiveMonths)
	}
	if v.DataPoints < m.gates.MinDataPoints {
		r.GateFailures = append(r.GateFailures, GateDataPoints)
	}
	if v.AvgStreams < m.gates.MinAvgStreams {
		r.GateFailures = append(r.GateFailures, GateAvgStreams)
	}
	if r.Gated() {
		return r, nil
	}

	r.Value = combine(m.weights, v.Features, r.Components)
	return r, nil
}

// combine fills components with each feature's weighted contribution on the
// 0-100 scale and returns their clamped sum. Features missing from the
// vector contribute exactly 0 but still appear in the attribution, so a
// reader can see every term of the sum.
func combine(weights Weights, features map[string]float64, components map[string]float64) float64 {
	var total float64
	for name, weight := range weights {
		contribution := weight * features[name] * maxScoreValue
		components[name] = contribution
		total += contribution
	}
	return math.Max(0, math.Min(maxScoreValue, total))
}
