package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/scoutbeat/scoutbeat/internal/adapters/repository"
	model "github.com/scoutbeat/scoutbeat/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func record(c C, id, trackID string, scoreType model.ScoreType, value float64, computedAt time.Time) model.ScoreRecord {
	rec, err := model.NewScoreRecord(id, trackID, scoreType, value,
		map[string]float64{"f": value}, []string{"because"}, nil, "summary", computedAt)
	c.So(err, ShouldBeNil)
	return rec
}

func TestMemoryStoreAppend(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	Convey("Given an in-memory store", t, func() {
		s := repository.NewMemoryStore()
		ctx := context.Background()

		Convey("Appending assigns an id when none is set", func(c C) {
			rec := record(c, "", "t1", model.ScoreTypeTrending, 50, base)
			id, err := s.Append(ctx, rec)
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)
		})

		Convey("A duplicate id is rejected", func(c C) {
			_, err := s.Append(ctx, record(c, "id-1", "t1", model.ScoreTypeTrending, 50, base))
			So(err, ShouldBeNil)

			_, err = s.Append(ctx, record(c, "id-1", "t1", model.ScoreTypeTrending, 60, base.Add(time.Hour)))
			So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)
		})

		Convey("History orders by ComputedAt, not arrival", func(c C) {
			_, err := s.Append(ctx, record(c, "id-2", "t1", model.ScoreTypeTrending, 60, base.Add(2*time.Hour)))
			So(err, ShouldBeNil)
			_, err = s.Append(ctx, record(c, "id-1", "t1", model.ScoreTypeTrending, 50, base))
			So(err, ShouldBeNil)
			_, err = s.Append(ctx, record(c, "id-3", "t1", model.ScoreTypeTrending, 55, base.Add(time.Hour)))
			So(err, ShouldBeNil)

			history, err := s.History(ctx, "t1", model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			So(history, ShouldHaveLength, 3)
			So(history[0].ID, ShouldEqual, "id-1")
			So(history[1].ID, ShouldEqual, "id-3")
			So(history[2].ID, ShouldEqual, "id-2")

			Convey("And Latest is the newest by ComputedAt", func() {
				latest, err := s.Latest(ctx, "t1", model.ScoreTypeTrending)
				So(err, ShouldBeNil)
				So(latest.ID, ShouldEqual, "id-2")
			})
		})

		Convey("Score types keep separate histories per track", func(c C) {
			_, err := s.Append(ctx, record(c, "tr-1", "t1", model.ScoreTypeTrending, 70, base))
			So(err, ShouldBeNil)
			_, err = s.Append(ctx, record(c, "ev-1", "t1", model.ScoreTypeEvergreen, 40, base))
			So(err, ShouldBeNil)

			trending, err := s.History(ctx, "t1", model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			So(trending, ShouldHaveLength, 1)

			evergreen, err := s.History(ctx, "t1", model.ScoreTypeEvergreen)
			So(err, ShouldBeNil)
			So(evergreen, ShouldHaveLength, 1)
			So(evergreen[0].ID, ShouldEqual, "ev-1")
		})

		Convey("Latest for an unknown pair is not found", func() {
			_, err := s.Latest(ctx, "nobody", model.ScoreTypeTrending)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Concurrent appends all land", func(c C) {
			const writers = 20
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					rec := record(c, fmt.Sprintf("id-%d", i), "t1", model.ScoreTypeTrending, float64(i), base.Add(time.Duration(i)*time.Minute))
					_, _ = s.Append(context.Background(), rec)
				}(i)
			}
			wg.Wait()

			history, err := s.History(ctx, "t1", model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			So(history, ShouldHaveLength, writers)
			for i := 1; i < len(history); i++ {
				So(history[i].ComputedAt.Before(history[i-1].ComputedAt), ShouldBeFalse)
			}
		})
	})
}

func TestMemoryStoreLatestByType(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	Convey("Given records for several tracks", t, func(c C) {
		s := repository.NewMemoryStore()
		ctx := context.Background()

		_, err := s.Append(ctx, record(c, "a-1", "a", model.ScoreTypeTrending, 10, base))
		So(err, ShouldBeNil)
		_, err = s.Append(ctx, record(c, "a-2", "a", model.ScoreTypeTrending, 90, base.Add(time.Hour)))
		So(err, ShouldBeNil)
		_, err = s.Append(ctx, record(c, "b-1", "b", model.ScoreTypeTrending, 30, base))
		So(err, ShouldBeNil)
		_, err = s.Append(ctx, record(c, "c-1", "c", model.ScoreTypeEvergreen, 80, base))
		So(err, ShouldBeNil)

		Convey("LatestByType returns one latest record per track of that type", func() {
			latest, err := s.LatestByType(ctx, model.ScoreTypeTrending)
			So(err, ShouldBeNil)
			So(latest, ShouldHaveLength, 2)
			So(latest[0].TrackID, ShouldEqual, "a")
			So(latest[0].ID, ShouldEqual, "a-2")
			So(latest[1].TrackID, ShouldEqual, "b")
		})
	})
}

func TestMemoryStoreTracks(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		s := repository.NewMemoryStore()
		ctx := context.Background()

		Convey("Upsert preserves first_seen across metadata updates", func() {
			first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			So(s.UpsertTrack(ctx, model.Track{ID: "t1", Title: "Old Title", FirstSeen: first}), ShouldBeNil)
			So(s.UpsertTrack(ctx, model.Track{ID: "t1", Title: "New Title", LabelText: "RCA Records"}), ShouldBeNil)

			track, err := s.GetTrack(ctx, "t1")
			So(err, ShouldBeNil)
			So(track.Title, ShouldEqual, "New Title")
			So(track.LabelText, ShouldEqual, "RCA Records")
			So(track.FirstSeen.Equal(first), ShouldBeTrue)
		})

		Convey("Upsert fills a zero first_seen", func() {
			So(s.UpsertTrack(ctx, model.Track{ID: "t2"}), ShouldBeNil)
			track, err := s.GetTrack(ctx, "t2")
			So(err, ShouldBeNil)
			So(track.FirstSeen.IsZero(), ShouldBeFalse)
		})

		Convey("Unknown tracks are not found", func() {
			_, err := s.GetTrack(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("ListTracks orders by id", func() {
			So(s.UpsertTrack(ctx, model.Track{ID: "zz"}), ShouldBeNil)
			So(s.UpsertTrack(ctx, model.Track{ID: "aa"}), ShouldBeNil)

			tracks, err := s.ListTracks(ctx)
			So(err, ShouldBeNil)
			So(tracks, ShouldHaveLength, 2)
			So(tracks[0].ID, ShouldEqual, "aa")
			So(tracks[1].ID, ShouldEqual, "zz")
		})
	})
}
