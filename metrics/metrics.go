package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loyalty", Name: "http_requests_total", Help: "HTTP requests by route and status class",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loyalty", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	SubmissionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loyalty", Name: "submissions_created_total", Help: "Submissions accepted for review",
	})
	SubmissionsRefused = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loyalty", Name: "submissions_refused_total", Help: "Submissions refused by eligibility rules",
	}, []string{"code"})
	SubmissionsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loyalty", Name: "submissions_resolved_total", Help: "Submissions approved or rejected",
	}, []string{"status"})
	PointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loyalty", Name: "points_awarded_total", Help: "Points credited by approvals",
	})
	EvidenceDeleteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loyalty", Name: "evidence_delete_failures_total", Help: "Evidence objects that could not be deleted after resolution",
	})
	EvidencePurged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loyalty", Name: "evidence_purged_total", Help: "Evidence objects deleted by the retention sweep",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "loyalty", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration,
		SubmissionsCreated, SubmissionsRefused, SubmissionsResolved,
		PointsAwarded, EvidenceDeleteFailures, EvidencePurged, DBPing,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
