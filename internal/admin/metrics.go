package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors exposed on /metrics. They are
// registered against a private registry (not the global default) so tests
// can construct multiple independent instances.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal    prometheus.Counter
	CacheHitsTotal  prometheus.Counter
	CacheMissTotal  prometheus.Counter
	NXDomainTotal   prometheus.Counter
	ErrorTotal      prometheus.Counter
	UpstreamLookups prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recudns_queries_total",
			Help: "Total number of inbound DNS queries handled.",
		}),
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recudns_cache_hits_total",
			Help: "Total number of queries answered from the persistent cache.",
		}),
		CacheMissTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recudns_cache_misses_total",
			Help: "Total number of cache lookups that found no valid entry.",
		}),
		NXDomainTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recudns_responses_nxdomain_total",
			Help: "Total number of NXDOMAIN responses returned to clients.",
		}),
		ErrorTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recudns_responses_error_total",
			Help: "Total number of SERVFAIL/FORMERR responses returned to clients.",
		}),
		UpstreamLookups: factory.NewCounter(prometheus.CounterOpts{
			Name: "recudns_upstream_lookups_total",
			Help: "Total number of external UDP lookups issued by the resolver.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
