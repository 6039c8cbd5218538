package stratumflow

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder exposes the scheduler's internal counters as Prometheus
// samples. This is the idiomatic-Go counterpart to the Rust original's
// `tracing::instrument` spans on every driving method (graph.rs): where
// the original emits trace spans for profiling, stratumflow emits
// Prometheus samples. A nil *MetricsRecorder is always safe to call
// through — every method is a no-op guard on nil, the same convention
// go-taskflow uses for its optional profiler.
type MetricsRecorder struct {
	ticksCompleted   prometheus.Counter
	strataRun        prometheus.Counter
	subgraphsRun     prometheus.Counter
	loopIterations   prometheus.Counter
	eventsDelivered  *prometheus.CounterVec
	stratumQueueSize *prometheus.GaugeVec
}

// NewMetricsRecorder builds a MetricsRecorder and registers it with reg.
// Pass prometheus.NewRegistry() (or prometheus.DefaultRegisterer) for reg.
func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	m := &MetricsRecorder{
		ticksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratumflow_ticks_completed_total",
			Help: "Number of scheduler ticks completed.",
		}),
		strataRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratumflow_strata_run_total",
			Help: "Number of RunStratum calls.",
		}),
		subgraphsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratumflow_subgraphs_run_total",
			Help: "Number of subgraph invocations.",
		}),
		loopIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratumflow_loop_iterations_total",
			Help: "Number of loop iterations across all loop blocks.",
		}),
		eventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratumflow_events_delivered_total",
			Help: "Number of reactor events received, by origin.",
		}, []string{"origin"}),
		stratumQueueSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stratumflow_stratum_queue_depth",
			Help: "Number of subgraphs currently queued per stratum.",
		}, []string{"stratum"}),
	}
	if reg != nil {
		reg.MustRegister(m.ticksCompleted, m.strataRun, m.subgraphsRun, m.loopIterations, m.eventsDelivered, m.stratumQueueSize)
	}
	return m
}

func (m *MetricsRecorder) tick() {
	if m == nil {
		return
	}
	m.ticksCompleted.Inc()
}

func (m *MetricsRecorder) stratum() {
	if m == nil {
		return
	}
	m.strataRun.Inc()
}

func (m *MetricsRecorder) subgraph() {
	if m == nil {
		return
	}
	m.subgraphsRun.Inc()
}

func (m *MetricsRecorder) loopIteration() {
	if m == nil {
		return
	}
	m.loopIterations.Inc()
}

func (m *MetricsRecorder) event(external bool) {
	if m == nil {
		return
	}
	origin := "internal"
	if external {
		origin = "external"
	}
	m.eventsDelivered.WithLabelValues(origin).Inc()
}

func (m *MetricsRecorder) queueDepth(stratum int, depth int) {
	if m == nil {
		return
	}
	m.stratumQueueSize.WithLabelValues(strconv.Itoa(stratum)).Set(float64(depth))
}
