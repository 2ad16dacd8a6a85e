package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resultados de etapa usados como etiqueta "result".
const (
	ResultOK       = "ok"
	ResultEmpty    = "empty"
	ResultSkipped  = "skipped"
	ResultError    = "error"
	ResultCanceled = "canceled"
)

var (
	// PipelineRuns cuenta ejecuciones del pipeline por tipo (send, edit, rename) y resultado.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmchat_pipeline_runs_total",
		Help: "Pipeline runs by kind and result",
	}, []string{"kind", "result"})

	// StageDuration mide la latencia de cada etapa del pipeline.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llmchat_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"stage"})

	// StageResults cuenta resultados por etapa (retrieval, decision, search, fetch).
	StageResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmchat_stage_results_total",
		Help: "Stage outcomes by stage and result",
	}, []string{"stage", "result"})

	// StreamFragments cuenta fragmentos reenviados al cliente.
	StreamFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llmchat_stream_fragments_total",
		Help: "Fragments forwarded to stream consumers",
	})

	// InflightPipelines refleja los pipelines en ejecución dentro del pool.
	InflightPipelines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "llmchat_pipelines_inflight",
		Help: "Pipelines currently running on the worker pool",
	})

	// Rejections cuenta solicitudes rechazadas antes de generar (busy, rate_limited, saturated).
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmchat_rejections_total",
		Help: "Requests rejected before generation by reason",
	}, []string{"reason"})
)
