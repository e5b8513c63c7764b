package service_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	service "github.com/scoutbeat/scoutbeat/internal/app"

	repository "github.com/scoutbeat/scoutbeat/internal/adapters/repository"
	label "github.com/scoutbeat/scoutbeat/internal/domain/label"
	model "github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func dailySeries(trackID, metric string, platform model.Platform, end time.Time, values ...float64) []model.MetricPoint {
	points := make([]model.MetricPoint, 0, len(values))
	for i, v := range values {
		points = append(points, model.MetricPoint{
			TrackID:  trackID,
			Platform: platform,
			Metric:   metric,
			TS:       end.AddDate(0, 0, -(len(values) - 1 - i)),
			Value:    v,
		})
	}
	return points
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// risingSnapshot passes the trending gates: both platforms grow in the
// final week over enough history.
func risingSnapshot(trackID string, end time.Time) model.Snapshot {
	posts := append(repeat(100, 30), repeat(400, 7)...)
	streams := append(repeat(10_000, 30), repeat(25_000, 7)...)

	snap := model.Snapshot{TrackID: trackID, Title: "Track " + trackID, Artist: "Artist"}
	snap.Points = append(snap.Points, dailySeries(trackID, model.MetricPosts, model.PlatformTikTok, end, posts...)...)
	snap.Points = append(snap.Points, dailySeries(trackID, model.MetricStreams, model.PlatformSpotify, end, streams...)...)
	return snap
}

// countingStore counts ranking reads to observe the listing cache.
type countingStore struct {
	repository.Store
	latestByType int
}

func (c *countingStore) LatestByType(ctx context.Context, scoreType model.ScoreType) ([]model.ScoreRecord, error) {
	c.latestByType++
	return c.Store.LatestByType(ctx, scoreType)
}

func startService(t *testing.T, opts ...service.Option) (*service.Service, repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc, err := service.New(append([]service.Option{service.WithStore(store), service.WithWorkerCount(2)}, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc, store
}

func waitForScore(svc *service.Service, trackID string, scoreType model.ScoreType) (model.ScoreRecord, bool) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := svc.LatestScore(context.Background(), trackID, scoreType)
		if err == nil {
			return rec, true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return model.ScoreRecord{}, false
}

func TestSubmitSnapshot(t *testing.T) {
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	Convey("Given a running service", t, func() {
		svc, _ := startService(t)
		ctx := context.Background()

		Convey("A valid snapshot is accepted with one job per score type", func() {
			jobIDs, err := svc.SubmitSnapshot(ctx, risingSnapshot("t1", end))
			So(err, ShouldBeNil)
			So(jobIDs, ShouldHaveLength, 2)
			So(jobIDs[0], ShouldNotEqual, jobIDs[1])

			Convey("And the track metadata is registered immediately", func() {
				track, err := svc.GetTrack(ctx, "t1")
				So(err, ShouldBeNil)
				So(track.Title, ShouldEqual, "Track t1")
			})

			Convey("And both scores eventually land in the store", func() {
				trending, ok := waitForScore(svc, "t1", model.ScoreTypeTrending)
				So(ok, ShouldBeTrue)
				So(trending.Value, ShouldBeGreaterThan, 0)
				So(trending.Components, ShouldNotBeEmpty)
				So(trending.Summary, ShouldNotBeEmpty)

				// 37 days of history cannot satisfy the evergreen gates.
				evergreen, ok := waitForScore(svc, "t1", model.ScoreTypeEvergreen)
				So(ok, ShouldBeTrue)
				So(evergreen.Value, ShouldEqual, 0)
				So(evergreen.RiskFlags, ShouldNotBeEmpty)
			})
		})

		Convey("A snapshot without a track id is rejected", func() {
			snap := risingSnapshot("", end)
			_, err := svc.SubmitSnapshot(ctx, snap)
			So(errors.Is(err, service.ErrMissingTrackID), ShouldBeTrue)
		})

		Convey("A snapshot without points is rejected", func() {
			_, err := svc.SubmitSnapshot(ctx, model.Snapshot{TrackID: "t1"})
			So(errors.Is(err, service.ErrEmptySnapshot), ShouldBeTrue)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc, err := service.New()
		So(err, ShouldBeNil)

		Convey("Submissions fail fast", func() {
			_, err := svc.SubmitSnapshot(context.Background(), risingSnapshot("t1", end))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Stats report the stopped state", func() {
			_, err := svc.Stats(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestComputeScore(t *testing.T) {
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	Convey("Given a running service", t, func() {
		svc, _ := startService(t)
		ctx := context.Background()

		Convey("A healthy snapshot produces a positive, explained score", func() {
			rec, err := svc.ComputeScore(ctx, risingSnapshot("t1", end), model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			So(rec.Value, ShouldBeGreaterThan, 0)
			So(rec.Value, ShouldBeLessThanOrEqualTo, 100)
			So(rec.WhySelected, ShouldNotBeEmpty)

			var sum float64
			for _, c := range rec.Components {
				sum += c
			}
			So(sum, ShouldAlmostEqual, rec.Value, 1e-9)
		})

		Convey("A gated snapshot produces a zero record with risk flags, not an error", func() {
			snap := model.Snapshot{TrackID: "thin"}
			snap.Points = dailySeries("thin", model.MetricPosts, model.PlatformTikTok, end, repeat(5, 3)...)

			rec, err := svc.ComputeScore(ctx, snap, model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			So(rec.Value, ShouldEqual, 0)
			So(rec.Components, ShouldBeEmpty)
			So(rec.RiskFlags, ShouldNotBeEmpty)
		})

		Convey("An unknown score type fails", func() {
			_, err := svc.ComputeScore(ctx, risingSnapshot("t1", end), model.ScoreType("viral"))
			So(errors.Is(err, service.ErrUnknownModel), ShouldBeTrue)
		})

		Convey("Rescoring the same snapshot appends instead of overwriting", func() {
			snap := risingSnapshot("t1", end)
			rec1, err := svc.ComputeScore(ctx, snap, model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			rec2, err := svc.ComputeScore(ctx, snap, model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			So(rec1.ID, ShouldNotEqual, rec2.ID)
			So(rec1.Value, ShouldEqual, rec2.Value)
		})
	})
}

func TestQueryTracks(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	seed := func(ctx context.Context, store repository.Store) {
		for _, row := range []struct {
			trackID string
			label   string
			value   float64
		}{
			{"a", "Interscope Records", 80},
			{"b", "", 95},
			{"c", "Universal Music Group", 60},
		} {
			err := store.UpsertTrack(ctx, model.Track{ID: row.trackID, LabelText: row.label})
			So(err, ShouldBeNil)
			rec, err := model.NewScoreRecord("rec-"+row.trackID, row.trackID, model.ScoreTypeTrending,
				row.value, nil, nil, nil, "", base)
			So(err, ShouldBeNil)
			_, err = store.Append(ctx, rec)
			So(err, ShouldBeNil)
		}
	}

	Convey("Given a service over seeded scores", t, func() {
		mem := repository.NewMemoryStore()
		store := &countingStore{Store: mem}
		svc, err := service.New(service.WithStore(store), service.WithWorkerCount(1), service.WithMaxListLimit(2))
		So(err, ShouldBeNil)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		seed(ctx, store)

		Convey("Tracks rank by score descending with dense ranks", func() {
			ranked, err := svc.QueryTracks(ctx, model.ScoreTypeTrending, "", 10)
			So(err, ShouldBeNil)
			So(ranked, ShouldHaveLength, 2) // clamped to the max list limit
			So(ranked[0].Track.ID, ShouldEqual, "b")
			So(ranked[0].Rank, ShouldEqual, 1)
			So(ranked[1].Track.ID, ShouldEqual, "a")
			So(ranked[1].Rank, ShouldEqual, 2)
		})

		Convey("Each row carries its label classification", func() {
			ranked, err := svc.QueryTracks(ctx, model.ScoreTypeTrending, "", 1)
			So(err, ShouldBeNil)
			So(ranked[0].Label, ShouldEqual, label.OtherUnsigned)
		})

		Convey("A label filter keeps only matching tracks", func() {
			ranked, err := svc.QueryTracks(ctx, model.ScoreTypeTrending, label.UniversalMusicGroup, 10)
			So(err, ShouldBeNil)
			So(ranked, ShouldHaveLength, 2)
			So(ranked[0].Track.ID, ShouldEqual, "a")
			So(ranked[1].Track.ID, ShouldEqual, "c")
			So(ranked[0].Rank, ShouldEqual, 1)
		})

		Convey("A non-positive limit is rejected", func() {
			_, err := svc.QueryTracks(ctx, model.ScoreTypeTrending, "", 0)
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Repeated identical queries hit the cache", func() {
			_, err := svc.QueryTracks(ctx, model.ScoreTypeTrending, "", 2)
			So(err, ShouldBeNil)
			_, err = svc.QueryTracks(ctx, model.ScoreTypeTrending, "", 2)
			So(err, ShouldBeNil)
			So(store.latestByType, ShouldEqual, 1)

			Convey("While a different limit is a separate entry", func() {
				_, err := svc.QueryTracks(ctx, model.ScoreTypeTrending, "", 1)
				So(err, ShouldBeNil)
				So(store.latestByType, ShouldEqual, 2)
			})
		})
	})
}

func TestParseCategoryStrict(t *testing.T) {
	Convey("Known categories parse", t, func() {
		cat, err := service.ParseCategoryStrict("sony_music")
		So(err, ShouldBeNil)
		So(cat, ShouldEqual, label.SonyMusic)
	})

	Convey("The explicit other_unsigned name parses", t, func() {
		cat, err := service.ParseCategoryStrict("other_unsigned")
		So(err, ShouldBeNil)
		So(cat, ShouldEqual, label.OtherUnsigned)
	})

	Convey("Unknown names are rejected instead of falling back", t, func() {
		_, err := service.ParseCategoryStrict("indie4ever")
		So(errors.Is(err, service.ErrInvalidCategory), ShouldBeTrue)
	})
}

func TestStats(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc, store := startService(t)
		ctx := context.Background()

		So(store.UpsertTrack(ctx, model.Track{ID: "t1"}), ShouldBeNil)
		So(store.UpsertTrack(ctx, model.Track{ID: "t2"}), ShouldBeNil)

		Convey("Stats reflect the pipeline state", func() {
			st, err := svc.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.TracksTracked, ShouldEqual, 2)
			So(st.WorkerCount, ShouldEqual, 2)
			So(st.QueueDepth, ShouldBeGreaterThanOrEqualTo, 0)
			So(st.Uptime, ShouldBeGreaterThan, 0)
		})
	})
}
