package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doridoridoriand/netwatch/internal/state"
)

const namespace = "netwatch"

// Metrics holds the Prometheus collectors for one monitor.
type Metrics struct {
	registry        *prometheus.Registry
	state           *prometheus.GaugeVec
	transitions     *prometheus.CounterVec
	events          *prometheus.CounterVec
	probes          *prometheus.CounterVec
	probeRTT        *prometheus.HistogramVec
	backoffAttempts *prometheus.CounterVec
	wakeHeld        prometheus.Gauge
	degraded        prometheus.Gauge
	lastProbe       prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_state",
			Help:      "1 for the current monitor state, 0 otherwise.",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_transitions_total",
			Help:      "State changes by source state, target state and triggering event.",
		}, []string{"from", "to", "event"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_events_total",
			Help:      "Events processed by the monitor, split by whether they had any effect.",
		}, []string{"event", "handled"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probe results per target.",
		}, []string{"target", "group", "result"}),
		probeRTT: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_rtt_seconds",
			Help:      "Round-trip time of successful probes.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"target"}),
		backoffAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backoff_attempts_total",
			Help:      "Backoff probe attempts by expected outcome.",
		}, []string{"expect"}),
		wakeHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wake_hold_held",
			Help:      "1 while the wake hold is held.",
		}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_degraded",
			Help:      "1 while monitoring without a wake hold or network signal.",
		}),
		lastProbe: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_probe_success",
			Help:      "Outcome of the most recent probe seen by the monitor.",
		}),
	}
	m.registry.MustRegister(
		m.state,
		m.transitions,
		m.events,
		m.probes,
		m.probeRTT,
		m.backoffAttempts,
		m.wakeHeld,
		m.degraded,
		m.lastProbe,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.setState(state.Disabled)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveEvent counts a processed event.
func (m *Metrics) ObserveEvent(event state.Event, handled bool) {
	m.events.WithLabelValues(event.String(), strconv.FormatBool(handled)).Inc()
}

// ObserveTransition counts a state change.
func (m *Metrics) ObserveTransition(from, to state.State, event state.Event) {
	m.transitions.WithLabelValues(from.String(), to.String(), event.String()).Inc()
}

// ObserveSnapshot mirrors the published snapshot into gauges.
func (m *Metrics) ObserveSnapshot(snap state.Snapshot) {
	m.setState(snap.State)
	m.wakeHeld.Set(boolGauge(snap.WakeHeld))
	m.degraded.Set(boolGauge(snap.Degraded))
	if snap.LastProbeAt != nil {
		m.lastProbe.Set(boolGauge(snap.LastProbeOK))
	}
}

// ObserveProbe counts one probe against target.
func (m *Metrics) ObserveProbe(target, group string, ok bool, rtt time.Duration) {
	result := "failure"
	if ok {
		result = "success"
		m.probeRTT.WithLabelValues(target).Observe(rtt.Seconds())
	}
	m.probes.WithLabelValues(target, group, result).Inc()
}

// ObserveBackoffAttempt counts one backoff attempt.
func (m *Metrics) ObserveBackoffAttempt(expectFailure bool, delay time.Duration) {
	expect := "success"
	if expectFailure {
		expect = "failure"
	}
	m.backoffAttempts.WithLabelValues(expect).Inc()
}

func (m *Metrics) setState(current state.State) {
	for _, s := range state.States() {
		m.state.WithLabelValues(s.String()).Set(boolGauge(s == current))
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
