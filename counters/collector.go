package counters

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegistryCollector exports every counter in a Registry to Prometheus.
// Register it with a prometheus.Registerer; metrics are read on scrape.
type RegistryCollector struct {
	reg *Registry

	value    *prometheus.Desc
	replicas *prometheus.Desc
}

func NewRegistryCollector(reg *Registry) *RegistryCollector {
	return &RegistryCollector{
		reg: reg,

		value: prometheus.NewDesc(
			"gcounter_value",
			"Counter value as seen by this replica",
			[]string{"counter"}, nil,
		),
		replicas: prometheus.NewDesc(
			"gcounter_replicas",
			"Number of replicas with a non-zero contribution",
			[]string{"counter"}, nil,
		),
	}
}

func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.replicas
}

func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	c.reg.Range(func(name string, a *AtomicCounter) bool {
		ch <- prometheus.MustNewConstMetric(
			c.value, prometheus.CounterValue, float64(a.Get()), name)
		ch <- prometheus.MustNewConstMetric(
			c.replicas, prometheus.GaugeValue, float64(a.Snapshot().Len()), name)
		return true
	})
}
