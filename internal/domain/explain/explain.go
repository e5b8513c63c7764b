// Package explain converts score attributions into human-readable
// justifications for A&R review. No black boxes: every statement and risk
// flag is traceable to a computed component or an evaluated gate, and flags
// never change the numeric score.
package explain

import (
	"fmt"
	"sort"

	"github.com/scoutbeat/scoutbeat/internal/domain/feature"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/internal/domain/scoring"
)

// defaultMateriality is the minimum share of the total score a component
// must contribute before it earns a why-selected statement.
const defaultMateriality = 0.05

// Limited-history advisory thresholds (flags only, never gates).
const (
	trendingThinHistory  = 15  // points
	evergreenThinHistory = 180 // points
	viralGrowthRatio     = 3.0
	decliningGrowthRatio = 0.7
	noticeableVariance   = 0.6
	activityGapRatio     = 0.7
)

// Explanation is the human-readable view of one score record.
type Explanation struct {
	Summary     string
	WhySelected []string
	RiskFlags   []string
}

// Generator produces explanations from scoring results.
type Generator struct {
	materiality float64
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithMateriality sets the minimum contribution share (of the total score)
// a component needs to be mentioned in why-selected.
func WithMateriality(share float64) Option {
	return func(g *Generator) {
		if share > 0 && share < 1 {
			g.materiality = share
		}
	}
}

// NewGenerator creates a generator with configuration options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{materiality: defaultMateriality}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Explain builds the explanation for a scoring result and the vector it was
// computed from.
func (g *Generator) Explain(res scoring.Result, vec feature.Vector) Explanation {
	if res.Gated() {
		return Explanation{
			Summary:   gatedSummary(res.Type),
			RiskFlags: gateFlags(res.GateFailures, vec),
		}
	}

	why := g.whySelected(res, vec)
	flags := riskFlags(res, vec)

	return Explanation{
		Summary:     summary(res, why),
		WhySelected: why,
		RiskFlags:   flags,
	}
}

// whySelected emits one statement per material component, ordered by
// contribution descending so the dominant signal reads first.
func (g *Generator) whySelected(res scoring.Result, vec feature.Vector) []string {
	type contribution struct {
		name  string
		value float64
	}
	ordered := make([]contribution, 0, len(res.Components))
	for name, v := range res.Components {
		ordered = append(ordered, contribution{name, v})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].value != ordered[j].value {
			return ordered[i].value > ordered[j].value
		}
		return ordered[i].name < ordered[j].name
	})

	var out []string
	for _, c := range ordered {
		if c.value <= 0 || c.value < g.materiality*res.Value {
			continue
		}
		if s := statement(c.name, vec); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// statement phrases one component with the underlying ratio or reading.
func statement(name string, vec feature.Vector) string {
	switch name {
	case feature.TikTokPostsVelocity:
		return fmt.Sprintf("TikTok posts growing %.1fx (7d vs 30d)", vec.Ratios[feature.TikTokPostsVelocity])
	case feature.TikTokViewsVelocity:
		return fmt.Sprintf("TikTok views accelerating %.1fx", vec.Ratios[feature.TikTokViewsVelocity])
	case feature.SpotifyStreamGrowth:
		return fmt.Sprintf("Spotify streams up %.1fx week over week", vec.Ratios[feature.SpotifyStreamGrowth])
	case feature.PlaylistGrowth:
		return fmt.Sprintf("Spotify playlist adds up %.1fx", vec.Ratios[feature.PlaylistGrowth])
	case feature.CrossPlatformBoost:
		return "Growing on both TikTok and Spotify"
	case feature.ChartEntryBonus:
		return "Appeared on TikTok or Spotify charts in the past 30 days"
	case feature.StreamConsistency:
		return fmt.Sprintf("Consistent streaming pattern (stability %.2f)", vec.Features[feature.StreamConsistency])
	case feature.ActiveMonthsRatio:
		return fmt.Sprintf("Active %d months in the past year", vec.ActiveMonths)
	case feature.LowVarianceBonus:
		return "Very low variance, highly predictable streams"
	case feature.ChartPersistence:
		return "Long-term Spotify chart presence (180+ days)"
	default:
		return ""
	}
}

// riskFlags derives advisory caveats from the computed components and gate
// readings. Flags are advisory only.
func riskFlags(res scoring.Result, vec feature.Vector) []string {
	var flags []string

	switch res.Type {
	case model.ScoreTypeTrending:
		if res.Components[feature.CrossPlatformBoost] == 0 {
			flags = append(flags, "Single-platform growth only (may not translate)")
		}
		if vec.DataPoints < trendingThinHistory {
			flags = append(flags, fmt.Sprintf("Limited historical data (%d points)", vec.DataPoints))
		}
	case model.ScoreTypeEvergreen:
		if vec.Features[feature.StreamConsistency] < noticeableVariance {
			flags = append(flags, fmt.Sprintf("Noticeable variance in streams (stability %.2f)", vec.Features[feature.StreamConsistency]))
		}
		if vec.Features[feature.ActiveMonthsRatio] < activityGapRatio {
			flags = append(flags, "Gaps in streaming activity over the past year")
		}
		if vec.DataPoints < evergreenThinHistory {
			flags = append(flags, fmt.Sprintf("Limited long-term data (%d points)", vec.DataPoints))
		}
		if growth := vec.Ratios[feature.SpotifyStreamGrowth]; growth > viralGrowthRatio {
			flags = append(flags, fmt.Sprintf("Currently experiencing viral growth (%.1fx), stability may not hold", growth))
		} else if growth > 0 && growth < decliningGrowthRatio {
			flags = append(flags, fmt.Sprintf("Streams declining (%.1fx), may be losing evergreen status", growth))
		}
	}

	return flags
}

// gateFlags translates gate failures into risk flags citing the readings
// that failed.
func gateFlags(failures []string, vec feature.Vector) []string {
	out := make([]string, 0, len(failures))
	for _, gate := range failures {
		switch gate {
		case scoring.GateTikTokPosts7d:
			out = append(out, fmt.Sprintf("Insufficient TikTok activity (%.0f posts in 7d)", vec.TikTokPosts7d))
		case scoring.GateSpotifyStreams7d:
			out = append(out, fmt.Sprintf("Insufficient Spotify volume (%.0f streams in 7d)", vec.SpotifyStreams7d))
		case scoring.GateDataPoints:
			out = append(out, fmt.Sprintf("Insufficient data (%d points)", vec.DataPoints))
		case scoring.GateActiveMonths:
			out = append(out, fmt.Sprintf("Active only %d months in the past year", vec.ActiveMonths))
		case scoring.GateAvgStreams:
			out = append(out, fmt.Sprintf("Average streams too low (%.0f)", vec.AvgStreams))
		}
	}
	return out
}

func gatedSummary(scoreType model.ScoreType) string {
	if scoreType == model.ScoreTypeEvergreen {
		return "Insufficient signal for an evergreen score"
	}
	return "Insufficient signal for a trending score"
}

// summary names the dominant contributing signal in one sentence, with a
// level word keyed to the score band.
func summary(res scoring.Result, why []string) string {
	var s string
	if res.Type == model.ScoreTypeTrending {
		switch {
		case res.Value > 80:
			s = "Strong momentum"
		case res.Value > 60:
			s = "Moderate momentum"
		default:
			s = "Emerging momentum"
		}
	} else {
		switch {
		case res.Value > 80:
			s = "Highly stable evergreen track"
		case res.Value > 60:
			s = "Stable evergreen track"
		default:
			s = "Moderately stable evergreen track"
		}
	}

	if len(why) > 0 {
		s += ": " + why[0]
	}
	return s
}
