package autoimport

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts autoimport activity.
type Metrics struct {
	Imports    prometheus.Counter
	Submodules prometheus.Counter
	Failed     prometheus.Counter
	Ambiguous  prometheus.Counter
	CacheNames prometheus.Gauge
}

// NewMetrics creates the counters and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Imports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bplplus",
			Subsystem: "autoimport",
			Name:      "imports_total",
			Help:      "Import statements run to resolve an undefined name",
		}),
		Submodules: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bplplus",
			Subsystem: "autoimport",
			Name:      "submodule_imports_total",
			Help:      "Submodules imported on attribute access",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bplplus",
			Subsystem: "autoimport",
			Name:      "failed_total",
			Help:      "Candidate imports that failed to run",
		}),
		Ambiguous: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bplplus",
			Subsystem: "autoimport",
			Name:      "ambiguous_total",
			Help:      "Lookups refused because several imports could bind the name",
		}),
		CacheNames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bplplus",
			Subsystem: "autoimport",
			Name:      "cache_names",
			Help:      "Names in the import cache",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Imports, m.Submodules, m.Failed, m.Ambiguous, m.CacheNames)
	}
	return m
}
