package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given a manager built with custom options", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace("test_ns"),
			WithSubsystem("test_sub"),
			WithMetricPrefix("demo"),
			WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
			WithRefreshInterval(5*time.Second),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the options are applied", func() {
			So(manager.namespace, ShouldEqual, "test_ns")
			So(manager.subsystem, ShouldEqual, "test_sub")
			So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			So(manager.refreshInterval, ShouldEqual, 5*time.Second)
		})

		Convey("And metric names carry namespace, subsystem and prefix", func() {
			manager.windowsEmitted.Inc()
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			found := false
			for _, mf := range families {
				if mf.GetName() == "test_ns_test_sub_demo_windows_emitted_total" {
					found = true
					So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("And empty option values keep the defaults", func() {
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)
			So(m.namespace, ShouldEqual, "gridcast")
			So(m.subsystem, ShouldEqual, "timeline")
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		m := active.Load()

		Convey("When events are loaded and skipped", func() {
			before := testutil.ToFloat64(m.eventsLoaded.WithLabelValues("lap"))
			RecordEventsLoaded("lap", 4)
			RecordRecordSkipped("lap", "missing_timestamp")

			Convey("Then the per-category counters move", func() {
				So(testutil.ToFloat64(m.eventsLoaded.WithLabelValues("lap"))-before, ShouldEqual, 4)
				So(testutil.ToFloat64(m.recordsSkipped.WithLabelValues("lap", "missing_timestamp")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When windows are emitted", func() {
			emitted := testutil.ToFloat64(m.windowsEmitted)
			empty := testutil.ToFloat64(m.windowsEmpty)
			RecordWindowEmitted(3)
			RecordWindowEmitted(0)

			Convey("Then empty windows are tracked separately", func() {
				So(testutil.ToFloat64(m.windowsEmitted)-emitted, ShouldEqual, 2)
				So(testutil.ToFloat64(m.windowsEmpty)-empty, ShouldEqual, 1)
			})
		})

		Convey("When replay and session metrics are recorded", func() {
			So(func() {
				RecordReplayEmission("overtake")
				RecordReplayPause(600 * time.Millisecond)
				RecordCursorAdvance(0)
				RecordCursorAdvance(12)
				UpdateActiveSessions(2)
				RecordSessionCreated()
				RecordSessionExhausted()
			}, ShouldNotPanic)
			So(testutil.ToFloat64(m.activeSessions), ShouldEqual, 2)
		})

		Convey("When the remaining recorders are used", func() {
			So(func() {
				RecordLoadLatency("position", 12)
				UpdateTimelineSize(42)
				UpdateLoadQueueCapacity(4)
				UpdateLoadQueueSize(1)
				RecordLoadJobDone()
				RecordLoadJobError()
				RecordNarrationLatency(80)
				RecordNarrationError()
				RecordHTTPRequest("windows", "GET", "200")
				RecordHTTPRequestDuration("windows", "GET", "200", 5.0)
				RecordErrorByComponent("source", "malformed_timestamp")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(9)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(m.timelineSize), ShouldEqual, 42)
			So(testutil.ToFloat64(m.systemGoroutineCount), ShouldEqual, 9)
		})

		Convey("When metrics are disabled", func() {
			m.enabled = false
			defer func() { m.enabled = true }()
			before := testutil.ToFloat64(m.windowsEmitted)
			RecordWindowEmitted(1)
			So(testutil.ToFloat64(m.windowsEmitted), ShouldEqual, before)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		UpdateTimelineSize(7)
		families, err := GetRegistry().Gather()

		Convey("Then it exposes gridcast metrics only", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, mf := range families {
				So(strings.HasPrefix(mf.GetName(), "gridcast_"), ShouldBeTrue)
			}
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a manager configured from the metrics block", t, func() {
		previous := active.Load()
		defer active.Store(previous)

		m := Configure(
			WithNamespace("pitwall"),
			WithSubsystem("feed"),
			WithMetricPrefix("v2"),
			WithCustomLabels(map[string]string{"circuit": "monza"}),
			WithRefreshInterval(3*time.Second),
		)

		Convey("Then it becomes the global manager", func() {
			So(active.Load(), ShouldEqual, m)
			So(RefreshInterval(), ShouldEqual, 3*time.Second)
			So(Enabled(), ShouldBeTrue)
		})

		Convey("And recorded series are exposed under the new names and labels", func() {
			UpdateTimelineSize(11)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			found := false
			for _, mf := range families {
				So(strings.HasPrefix(mf.GetName(), "pitwall_feed_v2_"), ShouldBeTrue)
				if mf.GetName() == "pitwall_feed_v2_size" {
					found = true
					So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "circuit")
					So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "monza")
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("And GetRegistry returns the new registry", func() {
			So(GetRegistry(), ShouldNotEqual, previous.gatherer)
		})
	})

	Convey("Given a disabled manager", t, func() {
		previous := active.Load()
		defer active.Store(previous)

		Configure(WithMetricsEnabled(false))
		RecordWindowEmitted(2)
		UpdateActiveSessions(5)

		Convey("Then recorders write nothing", func() {
			So(Enabled(), ShouldBeFalse)
			So(testutil.ToFloat64(active.Load().windowsEmitted), ShouldEqual, 0)
			So(testutil.ToFloat64(active.Load().activeSessions), ShouldEqual, 0)
		})
	})

	Convey("Given options with zero values", t, func() {
		m := NewManager(
			WithRefreshInterval(0),
			WithHistogramBuckets(nil),
			WithCustomLabels(nil),
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithPrometheusRegistry(nil),
		)

		Convey("Then the defaults are kept", func() {
			So(m.refreshInterval, ShouldEqual, defaultRefreshInterval)
			So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			So(m.customLabels, ShouldBeEmpty)
			So(m.gatherer, ShouldNotBeNil)
		})
	})
}
