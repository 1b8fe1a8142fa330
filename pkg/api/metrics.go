package api

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the compile-service counters and gauges.
type metrics struct {
	compiles      prometheus.Counter
	compileErrors prometheus.Counter
	entries       prometheus.Gauge
	groups        prometheus.Gauge
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camus_compiles_total",
			Help: "Successful rule-set compilations.",
		}),
		compileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camus_compile_errors_total",
			Help: "Rule-set compilations that failed.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camus_table_entries",
			Help: "Table entries emitted by the most recent compilation.",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camus_multicast_groups",
			Help: "Multicast groups allocated by the most recent compilation.",
		}),
	}
	registry.MustRegister(m.compiles, m.compileErrors, m.entries, m.groups)
	return m
}
