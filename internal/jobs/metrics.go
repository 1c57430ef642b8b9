package jobs

import "github.com/prometheus/client_golang/prometheus"

const ns = "schooloffice"

var (
	// runs по исходу: ok, error, panic
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "job_runs_total",
			Help:      "Background job runs by outcome",
		},
		[]string{"job", "outcome"},
	)

	jobErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "job_errors_total",
			Help:      "Background job errors",
		},
		[]string{"job"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "job_duration_seconds",
			Help:      "Background job duration in seconds",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"job"},
	)

	// сводка и сверка платежей могут молча не запускаться; алерт по возрасту
	jobLastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(jobRuns, jobErrors, jobDuration, jobLastSuccess)
}
