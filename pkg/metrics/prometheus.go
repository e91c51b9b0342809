// Package metrics provides Prometheus metrics for the rummy scoring engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the engine reports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Command flow
	commandsApplied  *prometheus.CounterVec
	commandsRejected *prometheus.CounterVec

	// Game progress
	roundsRecorded  prometheus.Counter
	roundsEdited    prometheus.Counter
	eliminations    prometheus.Counter
	reEntries       prometheus.Counter
	playersAdded    prometheus.Counter
	activePlayers   prometheus.Gauge
	currentRound    prometheus.Gauge
	recomputeTiming prometheus.Histogram

	// Persistence pipeline
	persistQueueSize     prometheus.Gauge
	persistQueueCapacity prometheus.Gauge
	persistLatency       prometheus.Histogram
	persistErrors        *prometheus.CounterVec
	persistWrites        prometheus.Counter
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // private registry, no default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rummy",
		subsystem:        "engine",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collector definitions
	auto := promauto.With(m.registry)

	m.commandsApplied = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commands_applied_total",
		Help:      "Session commands applied, by command",
	}, []string{"command"})

	m.commandsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commands_rejected_total",
		Help:      "Session commands rejected before mutation, by command and failure kind",
	}, []string{"command", "kind"})

	m.roundsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_recorded_total",
		Help:      "Rounds appended to a ledger",
	})

	m.roundsEdited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_edited_total",
		Help:      "Retroactive round edits",
	})

	m.eliminations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eliminations_total",
		Help:      "Players newly eliminated by a command",
	})

	m.reEntries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reentries_total",
		Help:      "Eliminated players granted re-entry",
	})

	m.playersAdded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players_added_total",
		Help:      "Players inserted into a running game",
	})

	m.activePlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_players",
		Help:      "Active, non-eliminated players in the current session",
	})

	m.currentRound = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "current_round",
		Help:      "Round number of the latest recorded round",
	})

	m.recomputeTiming = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_latency_milliseconds",
		Help:      "Full ledger replay latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.persistQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_queue_size",
		Help:      "Snapshots waiting to be written",
	})

	m.persistQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_queue_capacity",
		Help:      "Maximum number of pending snapshots",
	})

	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_latency_milliseconds",
		Help:      "Snapshot write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.persistErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_errors_total",
		Help:      "Failed persistence operations, by operation",
	}, []string{"op"})

	m.persistWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_writes_total",
		Help:      "Snapshots written or cleared successfully",
	})
}

// RecordCommand counts an applied command.
func RecordCommand(command string) {
	globalManager.commandsApplied.WithLabelValues(command).Inc()
}

// RecordCommandRejected counts a rejected command with its failure kind.
func RecordCommandRejected(command, kind string) {
	globalManager.commandsRejected.WithLabelValues(command, kind).Inc()
}

// RecordRoundRecorded counts an appended round.
func RecordRoundRecorded() {
	globalManager.roundsRecorded.Inc()
}

// RecordRoundEdited counts a retroactive edit.
func RecordRoundEdited() {
	globalManager.roundsEdited.Inc()
}

// RecordEliminations adds n newly eliminated players.
func RecordEliminations(n int) {
	if n > 0 {
		globalManager.eliminations.Add(float64(n))
	}
}

// RecordReEntry counts a granted re-entry.
func RecordReEntry() {
	globalManager.reEntries.Inc()
}

// RecordPlayerAdded counts a mid-game insertion.
func RecordPlayerAdded() {
	globalManager.playersAdded.Inc()
}

// UpdateActivePlayers sets the active player gauge.
func UpdateActivePlayers(n int) {
	globalManager.activePlayers.Set(float64(n))
}

// UpdateCurrentRound sets the current round gauge.
func UpdateCurrentRound(n int) {
	globalManager.currentRound.Set(float64(n))
}

// RecordRecomputeLatency observes one replay duration in milliseconds.
func RecordRecomputeLatency(ms float64) {
	globalManager.recomputeTiming.Observe(ms)
}

// UpdatePersistQueueSize sets the number of pending snapshots.
func UpdatePersistQueueSize(n int) {
	globalManager.persistQueueSize.Set(float64(n))
}

// UpdatePersistQueueCapacity sets the snapshot queue capacity.
func UpdatePersistQueueCapacity(n int) {
	globalManager.persistQueueCapacity.Set(float64(n))
}

// RecordPersistLatency observes one snapshot write in milliseconds.
func RecordPersistLatency(ms float64) {
	globalManager.persistLatency.Observe(ms)
}

// RecordPersistWrite counts a successful snapshot write or clear.
func RecordPersistWrite() {
	globalManager.persistWrites.Inc()
}

// RecordPersistError counts a failed persistence operation ("save", "clear", "enqueue").
func RecordPersistError(op string) {
	globalManager.persistErrors.WithLabelValues(op).Inc()
}

// GetRegistry returns the private registry holding every engine collector.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current metric values to path in the text exposition
// format understood by the node-exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
