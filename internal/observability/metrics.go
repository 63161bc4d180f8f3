package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_http_requests_total",
			Help: "Total API requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campaign_http_in_flight",
		Help: "In-flight HTTP requests",
	})
	EngineCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orchestrator_call_duration_seconds",
		Help:    "Latency of calls to the workflow engine by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	ProcessesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_processes_started_total",
		Help: "Remote processes started successfully",
	})
	StartErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_start_errors_total",
		Help: "Leads that failed to start",
	})
	DecisionsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_decisions_total",
		Help: "Decisions recorded per status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, EngineCallDuration, ProcessesStarted, StartErrors, DecisionsRecorded)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
