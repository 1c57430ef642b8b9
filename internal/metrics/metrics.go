package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "http_requests_total", Help: "Processed HTTP requests",
	}, []string{"route", "status"})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "schooloffice", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})

	Exports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "exports_total", Help: "Document exports by kind and outcome",
	}, []string{"kind", "outcome"})
	ExportPages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "export_pages_total", Help: "Pages written to exported documents",
	}, []string{"kind"})
	ExportDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "export_degraded_total", Help: "Recipients rendered with placeholders",
	}, []string{"kind"})
	ExportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schooloffice", Name: "export_duration_seconds", Help: "Export duration",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"kind"})

	CheckIns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "checkin_scans_total", Help: "Scanned codes by outcome",
	}, []string{"outcome"})
	CheckInSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "schooloffice", Name: "checkin_sessions_active", Help: "Active capture sessions",
	})

	SMSAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "sms_attempts_total", Help: "SMS send attempts by outcome",
	}, []string{"outcome"})
	Payments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "payment_transactions_total", Help: "Payment transactions by final status",
	}, []string{"status"})
	Verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooloffice", Name: "verifications_total", Help: "Document verification lookups",
	}, []string{"kind", "state"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HandlerErrors, DBPing,
		Exports, ExportPages, ExportDegraded, ExportDuration,
		CheckIns, CheckInSessions,
		SMSAttempts, Payments, Verifications,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
