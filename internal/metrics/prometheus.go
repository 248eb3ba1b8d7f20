package metrics

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	stageTotal   *prom.CounterVec
	stageSeconds *prom.HistogramVec
	fallbacks    *prom.CounterVec
	entityCache  *prom.CounterVec
	toolTotal    *prom.CounterVec
	toolSeconds  *prom.HistogramVec
}

func (p *promRecorder) IncStageTotal(stage string, success bool) {
	p.stageTotal.WithLabelValues(stage, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveStageSeconds(stage string, success bool, seconds float64) {
	p.stageSeconds.WithLabelValues(stage, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) IncFallback(reason string) {
	p.fallbacks.WithLabelValues(reason).Inc()
}

func (p *promRecorder) IncEntityCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.entityCache.WithLabelValues(result).Inc()
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, strconv.FormatBool(success)).Observe(seconds)
}

// EnablePrometheus installs a Prometheus recorder on a fresh registry and
// returns the handler that exposes it.
func EnablePrometheus() http.Handler {
	registry := prom.NewRegistry()
	p := &promRecorder{
		stageTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "nl2sparql_stage_total",
			Help: "Total number of pipeline stage executions",
		}, []string{"stage", "success"}),
		stageSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "nl2sparql_stage_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"stage", "success"}),
		fallbacks: prom.NewCounterVec(prom.CounterOpts{
			Name: "nl2sparql_fallback_total",
			Help: "Number of times the fallback query was returned",
		}, []string{"reason"}),
		entityCache: prom.NewCounterVec(prom.CounterOpts{
			Name: "nl2sparql_entity_cache_total",
			Help: "Entity property cache lookups",
		}, []string{"result"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "nl2sparql_tool_calls_total",
			Help: "Total number of MCP tool calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "nl2sparql_tool_call_seconds",
			Help:    "MCP tool call duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
	}

	registry.MustRegister(p.stageTotal, p.stageSeconds, p.fallbacks, p.entityCache, p.toolTotal, p.toolSeconds)
	SetRecorder(p)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
