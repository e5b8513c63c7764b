package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	api "github.com/scoutbeat/scoutbeat/internal/adapters/http/api"
	repository "github.com/scoutbeat/scoutbeat/internal/adapters/repository"
	service "github.com/scoutbeat/scoutbeat/internal/app"
	label "github.com/scoutbeat/scoutbeat/internal/domain/label"
	model "github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps is a canned implementation of the handler dependencies.
type stubDeps struct {
	submitted    []model.Snapshot
	submitErr    error
	ranked       []types.RankedTrack
	queryErr     error
	latest       map[string]model.ScoreRecord // key trackID:type
	history      []model.ScoreRecord
	track        model.Track
	trackErr     error
	stats        types.Stats
	statsErr     error
	lastCategory label.Category
	lastLimit    int
}

func (s *stubDeps) SubmitSnapshot(_ context.Context, snap model.Snapshot) ([]string, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submitted = append(s.submitted, snap)
	return []string{"job-1", "job-2"}, nil
}

func (s *stubDeps) QueryTracks(_ context.Context, scoreType model.ScoreType, category label.Category, limit int) ([]types.RankedTrack, error) {
	s.lastCategory = category
	s.lastLimit = limit
	return s.ranked, s.queryErr
}

func (s *stubDeps) LatestScore(_ context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error) {
	rec, ok := s.latest[trackID+":"+string(scoreType)]
	if !ok {
		return model.ScoreRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (s *stubDeps) ScoreHistory(_ context.Context, trackID string, scoreType model.ScoreType) ([]model.ScoreRecord, error) {
	return s.history, nil
}

func (s *stubDeps) GetTrack(_ context.Context, trackID string) (model.Track, error) {
	if s.trackErr != nil {
		return model.Track{}, s.trackErr
	}
	return s.track, nil
}

func (s *stubDeps) ClassifyLabel(_ context.Context, texts ...string) label.Category {
	return label.NewClassifier().Classify(texts...)
}

func (s *stubDeps) MaxListLimit() int { return 50 }

func (s *stubDeps) Stats(_ context.Context) (types.Stats, error) {
	return s.stats, s.statsErr
}

func newTestServer(deps *stubDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func snapshotBody(trackID string, points int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`{"track_id":%q,"title":"T","artist":"A","label_text":"RCA Records","points":[`, trackID))
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	for i := 0; i < points; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf(`{"platform":"TikTok","metric":"Posts","ts":%q,"value":%d}`,
			base.AddDate(0, 0, -i).Format(time.RFC3339), 100+i))
	}
	sb.WriteString("]}")
	return sb.String()
}

func TestSnapshotsEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("A valid snapshot is accepted", func() {
			resp, err := http.Post(srv.URL+"/snapshots", "application/json", strings.NewReader(snapshotBody("t1", 3)))
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			var ack struct {
				Status string   `json:"status"`
				JobIDs []string `json:"job_ids"`
			}
			decodeBody(t, resp, &ack)
			So(ack.Status, ShouldEqual, "accepted")
			So(ack.JobIDs, ShouldResemble, []string{"job-1", "job-2"})

			Convey("And the platform and metric are normalized to lower case", func() {
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Points[0].Platform, ShouldEqual, model.PlatformTikTok)
				So(deps.submitted[0].Points[0].Metric, ShouldEqual, model.MetricPosts)
			})
		})

		Convey("Malformed JSON is a bad request", func() {
			resp, err := http.Post(srv.URL+"/snapshots", "application/json", strings.NewReader("{nope"))
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("A snapshot without points is a bad request", func() {
			resp, err := http.Post(srv.URL+"/snapshots", "application/json",
				strings.NewReader(`{"track_id":"t1","points":[]}`))
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("A bad timestamp is a bad request", func() {
			resp, err := http.Post(srv.URL+"/snapshots", "application/json",
				strings.NewReader(`{"track_id":"t1","points":[{"platform":"tiktok","metric":"posts","ts":"yesterday","value":1}]}`))
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("A full queue maps to backpressure", func() {
			deps.submitErr = fmt.Errorf("enqueue: %w", service.ErrQueueFull)
			resp, err := http.Post(srv.URL+"/snapshots", "application/json", strings.NewReader(snapshotBody("t1", 3)))
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)

			var e struct {
				Code string `json:"code"`
			}
			decodeBody(t, resp, &e)
			So(e.Code, ShouldEqual, "backpressure")
		})

		Convey("GET is not routed", func() {
			resp, err := http.Get(srv.URL + "/snapshots")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})
	})
}

func TestTracksEndpoint(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	Convey("Given the API server over ranked results", t, func() {
		rec, err := model.NewScoreRecord("r1", "t1", model.ScoreTypeTrending, 80, nil, nil, nil, "", base)
		So(err, ShouldBeNil)

		deps := &stubDeps{
			ranked: []types.RankedTrack{{
				Rank:   1,
				Track:  model.Track{ID: "t1", Title: "Song"},
				Record: rec,
				Label:  label.OtherUnsigned,
			}},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("The default listing returns ranked rows", func() {
			resp, err := http.Get(srv.URL + "/tracks")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var rows []types.RankedTrack
			decodeBody(t, resp, &rows)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Track.ID, ShouldEqual, "t1")
			So(deps.lastLimit, ShouldEqual, 20)
		})

		Convey("A label filter is parsed strictly", func() {
			resp, err := http.Get(srv.URL + "/tracks?label=sony_music")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()
			So(deps.lastCategory, ShouldEqual, label.SonyMusic)

			resp, err = http.Get(srv.URL + "/tracks?label=whatever")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("An unknown score type is a bad request", func() {
			resp, err := http.Get(srv.URL + "/tracks?type=viral")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("A limit beyond the cap is rejected with its own code", func() {
			resp, err := http.Get(srv.URL + "/tracks?limit=51")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			var e struct {
				Code string `json:"code"`
			}
			decodeBody(t, resp, &e)
			So(e.Code, ShouldEqual, "limit_exceeded")
		})

		Convey("A non-numeric limit is a bad request", func() {
			resp, err := http.Get(srv.URL + "/tracks?limit=lots")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})
	})

	Convey("Given the API server over one stored track", t, func() {
		rec, err := model.NewScoreRecord("r1", "t1", model.ScoreTypeTrending, 72.5, nil, nil, nil, "Moderate momentum", base)
		So(err, ShouldBeNil)

		deps := &stubDeps{
			track:  model.Track{ID: "t1", Title: "Song", LabelText: "Interscope Records"},
			latest: map[string]model.ScoreRecord{"t1:trending": rec},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("Track detail carries metadata, label and available scores", func() {
			resp, err := http.Get(srv.URL + "/tracks/t1")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var detail struct {
				Track     model.Track        `json:"track"`
				Label     label.Category     `json:"label"`
				Trending  *model.ScoreRecord `json:"trending"`
				Evergreen *model.ScoreRecord `json:"evergreen"`
			}
			decodeBody(t, resp, &detail)
			So(detail.Track.Title, ShouldEqual, "Song")
			So(detail.Label, ShouldEqual, label.UniversalMusicGroup)
			So(detail.Trending, ShouldNotBeNil)
			So(detail.Trending.Value, ShouldEqual, 72.5)
			So(detail.Evergreen, ShouldBeNil)
		})

		Convey("An unknown track is not found", func() {
			deps.trackErr = repository.ErrNotFound
			resp, err := http.Get(srv.URL + "/tracks/ghost")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})

		Convey("A nested path under a track id is a bad request", func() {
			resp, err := http.Get(srv.URL + "/tracks/t1/extra")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})
	})
}

func TestScoresEndpoint(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	Convey("Given the API server over stored scores", t, func() {
		rec, err := model.NewScoreRecord("r1", "t1", model.ScoreTypeTrending, 80,
			map[string]float64{"tiktok_posts_velocity": 10},
			[]string{"TikTok posts growing 4.0x (7d vs 30d)"}, nil, "Strong momentum", base)
		So(err, ShouldBeNil)

		deps := &stubDeps{
			latest:  map[string]model.ScoreRecord{"t1:trending": rec},
			history: []model.ScoreRecord{rec},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("The latest score carries the full explanation", func() {
			resp, err := http.Get(srv.URL + "/scores/t1")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var got model.ScoreRecord
			decodeBody(t, resp, &got)
			So(got.Value, ShouldEqual, 80)
			So(got.Components["tiktok_posts_velocity"], ShouldEqual, 10)
			So(got.WhySelected, ShouldHaveLength, 1)
			So(got.Summary, ShouldEqual, "Strong momentum")
		})

		Convey("History returns the chronological records", func() {
			resp, err := http.Get(srv.URL + "/scores/t1/history")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var got []model.ScoreRecord
			decodeBody(t, resp, &got)
			So(got, ShouldHaveLength, 1)
		})

		Convey("A track without records is not found", func() {
			resp, err := http.Get(srv.URL + "/scores/ghost")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})

		Convey("An unknown trailing segment is a bad request", func() {
			resp, err := http.Get(srv.URL + "/scores/t1/future")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})
	})
}

func TestLabelsAndOpsEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			stats: types.Stats{TracksTracked: 3, QueueDepth: 1, WorkerCount: 4, Uptime: time.Minute},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("Label classification echoes the text with its category", func() {
			resp, err := http.Get(srv.URL + "/labels/classify?text=Atlantic+Recording+Corporation")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var got struct {
				Text     string         `json:"text"`
				Category label.Category `json:"category"`
			}
			decodeBody(t, resp, &got)
			So(got.Text, ShouldEqual, "Atlantic Recording Corporation")
			So(got.Category, ShouldEqual, label.WarnerMusicGroup)
		})

		Convey("Empty text classifies as other_unsigned", func() {
			resp, err := http.Get(srv.URL + "/labels/classify")
			So(err, ShouldBeNil)

			var got struct {
				Category label.Category `json:"category"`
			}
			decodeBody(t, resp, &got)
			So(got.Category, ShouldEqual, label.OtherUnsigned)
		})

		Convey("Health reports ok", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var got struct {
				Status string `json:"status"`
			}
			decodeBody(t, resp, &got)
			So(got.Status, ShouldEqual, "ok")
		})

		Convey("Stats report pipeline counters", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var got types.Stats
			decodeBody(t, resp, &got)
			So(got.TracksTracked, ShouldEqual, 3)
			So(got.WorkerCount, ShouldEqual, 4)
		})

		Convey("A stopped service maps stats to unavailable", func() {
			deps.statsErr = service.ErrNotStarted
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			resp.Body.Close()
		})

		Convey("Metrics are exposed in Prometheus text format", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()
		})
	})
}
