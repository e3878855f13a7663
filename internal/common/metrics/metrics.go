package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	LLMAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_attempts_total",
			Help: "Model calls issued, including retried attempts",
		},
		[]string{"shape", "outcome"},
	)

	LLMRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_retries_total",
			Help: "Retries scheduled after a classified failure",
		},
		[]string{"shape", "reason"},
	)

	LLMFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_failures_total",
			Help: "Invocations that surfaced an error, by error code",
		},
		[]string{"shape", "error_code"},
	)

	LLMInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_invocation_duration_seconds",
			Help:    "Wall time of a full invocation including retries and backoff",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"shape"},
	)

	EvaluationProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_probes_total",
			Help: "Evaluation probes by suite and outcome",
		},
		[]string{"suite", "outcome"},
	)

	EvaluationSuiteSuccessRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evaluation_suite_success_rate",
			Help: "Success rate of the most recent run of each suite",
		},
		[]string{"suite"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request latency by route",
		},
		[]string{"method", "route"},
	)
)
