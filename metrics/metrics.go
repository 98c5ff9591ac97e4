package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MutationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flow_mutations_applied_total",
		Help: "Total number of graph mutations applied, labelled by operation.",
	}, []string{"op"})

	MutationNoops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flow_mutations_noop_total",
		Help: "Total number of graph mutations rejected as no-ops (unknown node, bad kind).",
	}, []string{"op"})

	PromptSerializations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flow_prompt_serializations_total",
		Help: "Total number of flow graphs serialized to prompts.",
	})

	PromptBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flow_prompt_bytes",
		Help:    "Size distribution of serialized prompts in bytes.",
		Buckets: []float64{256, 512, 1024, 2048, 4096, 8192, 16384},
	})

	IngestionTasksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flow_ingestion_tasks_started_total",
		Help: "Total number of knowledge-ingestion tasks accepted.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flow_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"method", "status"})
)
