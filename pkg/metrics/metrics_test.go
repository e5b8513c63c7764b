package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithEnabled(true),
				WithRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("The global registry gathers the service instruments", t, func() {
		RecordScoreComputed("trending")

		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)
		So(families, ShouldNotBeEmpty)

		var found bool
		for _, f := range families {
			if f.GetName() == "scoutbeat_discovery_scores_computed_total" {
				found = true
			}
		}
		So(found, ShouldBeTrue)
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording scoring metrics", func() {
			So(func() {
				RecordScoreComputed("trending")
				RecordScoreComputed("evergreen")
				RecordGateFailure("trending", "min_data_points")
				RecordScoringLatency(12.5)
				RecordScoringError()
			}, ShouldNotPanic)
		})

		Convey("When recording store metrics", func() {
			So(func() {
				RecordStoreAppend(3.0)
				RecordStoreError()
				UpdateTracksTracked(100)
			}, ShouldNotPanic)
		})

		Convey("When recording cache metrics", func() {
			So(func() {
				RecordCacheHit()
				RecordCacheMiss()
				RecordCacheSharedFlight()
			}, ShouldNotPanic)
		})

		Convey("When recording queue metrics", func() {
			So(func() {
				UpdateQueueSize(500)
				UpdateQueueCapacity(10_000)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
			}, ShouldNotPanic)
		})

		Convey("When recording worker metrics", func() {
			So(func() {
				UpdateWorkerActive(8)
				RecordWorkerLatency(20.0)
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("tracks", "200")
				RecordHTTPRequest("snapshots", "202")
				RecordHTTPDuration("tracks", 5.0)
			}, ShouldNotPanic)
		})

		Convey("When recording edge values", func() {
			So(func() {
				UpdateQueueSize(0)
				UpdateTracksTracked(0)
				RecordScoringLatency(0.0)
				RecordHTTPRequest("", "")
				RecordHTTPDuration("", 0.0)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		done := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordScoreComputed("trending")
					UpdateQueueSize(j)
					RecordWorkerLatency(float64(j))
					RecordHTTPRequest("tracks", "200")
				}
				done <- true
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then concurrent access does not panic", func() {
			So(true, ShouldBeTrue)
		})
	})
}
