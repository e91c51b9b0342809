package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the custom names", func() {
				So(m, ShouldNotBeNil)
				m.roundsRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_rounds_recorded_total")
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "rummy")
				So(m.subsystem, ShouldEqual, "engine")
				So(len(m.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When commands are applied and rejected", func() {
			before := testutil.ToFloat64(globalManager.commandsApplied.WithLabelValues("submit_round"))
			RecordCommand("submit_round")
			RecordCommandRejected("submit_round", "validation")

			Convey("Then the labelled counters move", func() {
				So(testutil.ToFloat64(globalManager.commandsApplied.WithLabelValues("submit_round")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.commandsRejected.WithLabelValues("submit_round", "validation")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When eliminations are recorded", func() {
			before := testutil.ToFloat64(globalManager.eliminations)
			RecordEliminations(2)
			RecordEliminations(0)
			RecordEliminations(-1)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(globalManager.eliminations), ShouldEqual, before+2)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateActivePlayers(4)
			UpdateCurrentRound(7)
			UpdatePersistQueueSize(3)
			UpdatePersistQueueCapacity(64)

			Convey("Then they report the last value", func() {
				So(testutil.ToFloat64(globalManager.activePlayers), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.currentRound), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.persistQueueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.persistQueueCapacity), ShouldEqual, 64)
			})
		})

		Convey("When persistence outcomes are recorded", func() {
			before := testutil.ToFloat64(globalManager.persistErrors.WithLabelValues("save"))
			RecordPersistError("save")
			RecordPersistWrite()
			RecordPersistLatency(1.5)
			RecordRecomputeLatency(0.2)

			Convey("Then the error counter is labelled by op", func() {
				So(testutil.ToFloat64(globalManager.persistErrors.WithLabelValues("save")), ShouldEqual, before+1)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a temporary directory", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "rummy.prom")

		Convey("When writing the registry", func() {
			RecordRoundRecorded()
			err := WriteTextfile(path)

			Convey("Then the file holds the exposition format", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(data), "rummy_engine_rounds_recorded_total"), ShouldBeTrue)
			})
		})

		Convey("When the path is empty", func() {
			Convey("Then nothing is written", func() {
				So(WriteTextfile(""), ShouldBeNil)
			})
		})

		Convey("When the directory does not exist", func() {
			err := WriteTextfile(filepath.Join(dir, "missing", "rummy.prom"))

			Convey("Then a wrapped error is returned", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrWriteTextfile), ShouldBeTrue)
			})
		})
	})
}
