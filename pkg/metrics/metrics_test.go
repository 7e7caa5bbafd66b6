package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.sessionsCreated.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["statline_assignment_sessions_created_total"], ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.enabled, ShouldBeFalse)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				manager.resets.Inc()
				So(testutil.ToFloat64(manager.resets), ShouldEqual, 1)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families[0].GetName(), ShouldStartWith, "test_sub_")
				So(families[0].GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording move outcomes", func() {
			before := testutil.ToFloat64(globalManager.moves.WithLabelValues("slot_filled"))
			RecordMove("slot_filled")
			RecordMove("slot_filled")

			Convey("Then the labelled counter increases", func() {
				So(testutil.ToFloat64(globalManager.moves.WithLabelValues("slot_filled")), ShouldEqual, before+2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateActiveSessions(3)
			UpdateQueueCapacity(128)
			UpdateStreamSubscribers(2)

			Convey("Then the latest value is reported", func() {
				So(testutil.ToFloat64(globalManager.sessionsActive), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 128)
				So(testutil.ToFloat64(globalManager.streamSubscribers), ShouldEqual, 2)
			})
		})

		Convey("When recording the remaining series", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordSessionCreated()
					RecordSessionDeleted()
					RecordSessionEvicted()
					RecordInitialize()
					RecordReset()
					RecordEpochCompleted()
					RecordHTTPRequest("sessions", "POST", "201")
					RecordHTTPRequestDuration("sessions", "POST", "201", 3)
					RecordErrorByEndpoint("sessions", "GET", "not_found")
					UpdateQueueSize(1)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError("queue_full")
					UpdateWorkerCount(4)
					RecordWorkerProcessingLatency(0.2)
					RecordWorkerError()
					RecordStreamDropped()
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering from the exported registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then the service metrics are present", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
