package prometheus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ksavin/snipurl/config"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	defaultPort       = 9090
)

// NewServer builds a basic HTTP server that exposes /metrics for Prometheus scraping.
func NewServer(cfg config.PrometheusConfig) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
}

// Metrics bundles the service-level counters.
type Metrics struct {
	LinksCreated   prom.Counter
	Redirects      prom.Counter
	ClicksApplied  prom.Counter
	ClicksFellBack prom.Counter
	ClicksDropped  prom.Counter
	CacheHits      prom.Counter
	FilterRejects  prom.Counter
}

// NewMetrics registers the counter set on the given registerer.
func NewMetrics(reg prom.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LinksCreated: factory.NewCounter(prom.CounterOpts{
			Name: "snipurl_links_created_total",
			Help: "Short links successfully created.",
		}),
		Redirects: factory.NewCounter(prom.CounterOpts{
			Name: "snipurl_redirects_total",
			Help: "Redirects issued for resolved short codes.",
		}),
		ClicksApplied: factory.NewCounter(prom.CounterOpts{
			Name: "snipurl_clicks_applied_total",
			Help: "Click increments applied via the atomic store operation.",
		}),
		ClicksFellBack: factory.NewCounter(prom.CounterOpts{
			Name: "snipurl_clicks_fallback_total",
			Help: "Click increments applied via the read-modify-write fallback.",
		}),
		ClicksDropped: factory.NewCounter(prom.CounterOpts{
			Name: "snipurl_clicks_dropped_total",
			Help: "Click increments dropped after both write paths failed.",
		}),
		CacheHits: factory.NewCounter(prom.CounterOpts{
			Name: "snipurl_resolve_cache_hits_total",
			Help: "Resolutions served from the Redis cache.",
		}),
		FilterRejects: factory.NewCounter(prom.CounterOpts{
			Name: "snipurl_resolve_filter_rejects_total",
			Help: "Resolutions rejected by the negative-lookup filter.",
		}),
	}
}

// NopMetrics returns a metrics set backed by a throwaway registry.
func NopMetrics() *Metrics {
	return NewMetrics(prom.NewRegistry())
}
