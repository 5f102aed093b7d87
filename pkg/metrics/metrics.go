// Package metrics exports revenuemap's pipeline, cache and HTTP events as
// Prometheus metrics. [Registry] implements the observability hook
// interfaces; [Install] registers it.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/revenuemap/pkg/observability"
)

const namespace = "revenuemap"

// Registry holds all metrics for the application.
type Registry struct {
	// Pipeline
	RecordsPrepared *prometheus.CounterVec
	LayoutsTotal    *prometheus.CounterVec
	LayoutDuration  prometheus.Histogram
	TilesPlaced     prometheus.Histogram
	TilesDropped    prometheus.Counter
	RendersTotal    *prometheus.CounterVec
	RenderDuration  *prometheus.HistogramVec

	// Cache
	CacheOpsTotal    *prometheus.CounterVec
	CacheWrittenSize prometheus.Counter

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all metrics initialized, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.initPipelineMetrics()
	r.initCacheMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initPipelineMetrics() {
	f := promauto.With(r.registry)
	r.RecordsPrepared = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Records seen by the pipeline, by outcome",
	}, []string{"outcome"})

	r.LayoutsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layouts_total",
		Help:      "Treemap layouts computed",
	}, []string{"status"})

	r.LayoutDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_duration_seconds",
		Help:      "Time spent computing a treemap layout",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	r.TilesPlaced = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_tiles",
		Help:      "Tiles placed per layout",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 1000},
	})

	r.TilesDropped = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layout_dropped_items_total",
		Help:      "Items left without a tile because the container ran out",
	})

	r.RendersTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "renders_total",
		Help:      "Artifacts rendered, by format",
	}, []string{"format", "status"})

	r.RenderDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering all requested formats",
		Buckets:   prometheus.DefBuckets,
	}, []string{"formats"})
}

func (r *Registry) initCacheMetrics() {
	f := promauto.With(r.registry)
	r.CacheOpsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_operations_total",
		Help:      "Cache lookups and writes",
	}, []string{"type", "result"})

	r.CacheWrittenSize = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_written_bytes_total",
		Help:      "Bytes written to the cache",
	})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)
	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Install registers r as the pipeline, cache and server hooks.
func Install(r *Registry) {
	observability.SetPipelineHooks(r)
	observability.SetCacheHooks(r)
	observability.SetServerHooks(r)
}

func (r *Registry) OnPrepare(_ context.Context, records, rejected int) {
	r.RecordsPrepared.WithLabelValues("accepted").Add(float64(records))
	r.RecordsPrepared.WithLabelValues("rejected").Add(float64(rejected))
}

func (r *Registry) OnLayoutStart(context.Context, int) {}

func (r *Registry) OnLayoutComplete(_ context.Context, tiles, dropped int, d time.Duration, err error) {
	r.LayoutsTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	r.LayoutDuration.Observe(d.Seconds())
	r.TilesPlaced.Observe(float64(tiles))
	r.TilesDropped.Add(float64(dropped))
}

func (r *Registry) OnRenderStart(context.Context, []string) {}

func (r *Registry) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	s := status(err)
	for _, f := range formats {
		r.RendersTotal.WithLabelValues(f, s).Inc()
	}
	r.RenderDuration.WithLabelValues(strconv.Itoa(len(formats))).Observe(d.Seconds())
}

func (r *Registry) OnCacheHit(_ context.Context, keyType string) {
	r.CacheOpsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (r *Registry) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheOpsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (r *Registry) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheOpsTotal.WithLabelValues(keyType, "set").Inc()
	r.CacheWrittenSize.Add(float64(size))
}

func (r *Registry) OnRequest(_ context.Context, method, route string, code int, d time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ observability.PipelineHooks = (*Registry)(nil)
	_ observability.CacheHooks    = (*Registry)(nil)
	_ observability.ServerHooks   = (*Registry)(nil)
)
