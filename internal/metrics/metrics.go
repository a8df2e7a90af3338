package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var msBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbix_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urbix_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"method", "route"})

	ProviderCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbix_provider_calls_total",
		Help: "Provider category calls per site aggregation",
	}, []string{"category"})
	ProviderFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbix_provider_failures_total",
		Help: "Provider category calls that degraded to an empty value",
	}, []string{"category"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urbix_provider_duration_ms",
		Help:    "Provider category duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"category"})

	ArcGISRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbix_arcgis_requests_total",
		Help: "ArcGIS REST layer queries by service host and outcome",
	}, []string{"host", "outcome"})
	ArcGISDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urbix_arcgis_duration_ms",
		Help:    "ArcGIS REST query duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"host"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urbix_cache_hits_total",
		Help: "Total redis cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urbix_cache_misses_total",
		Help: "Total redis cache misses",
	})

	ResolverTierTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbix_resolver_tier_total",
		Help: "Resolver lookups answered by tier (local, remote, miss)",
	}, []string{"kind", "tier"})

	ConstraintsScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "urbix_constraints_score",
		Help:    "Distribution of computed constraints scores",
		Buckets: []float64{10, 20, 40, 60, 80, 90, 100},
	})
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPDurationMs)
	prometheus.MustRegister(ProviderCallsTotal)
	prometheus.MustRegister(ProviderFailuresTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(ArcGISRequestsTotal)
	prometheus.MustRegister(ArcGISDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ResolverTierTotal)
	prometheus.MustRegister(ConstraintsScore)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
