package metrics

import (
	"net/http"
	"time"

	"mintgate/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the service's Prometheus collectors on a private registry.
type Recorder struct {
	registry      *prometheus.Registry
	issuance      *prometheus.CounterVec
	quotaExceeded prometheus.Counter
	upstream      *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		issuance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mintgate",
			Name:      "issuance_total",
			Help:      "Voucher requests by the stage they ended in and their outcome.",
		}, []string{"stage", "outcome"}),
		quotaExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mintgate",
			Name:      "signing_quota_exceeded_total",
			Help:      "Signatures refused because the execution quota was spent.",
		}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mintgate",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to the captcha verifier, ledger node and custody webhook.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "code"}),
	}
	r.registry.MustRegister(
		r.issuance,
		r.quotaExceeded,
		r.upstream,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveIssuance(stage domain.Stage, outcome domain.IssuanceOutcome) {
	r.issuance.WithLabelValues(string(stage), string(outcome)).Inc()
}

func (r *Recorder) QuotaExceeded() {
	r.quotaExceeded.Inc()
}

// HTTPClient returns a client whose round trips are timed under service.
func (r *Recorder) HTTPClient(service string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	observer := r.upstream.MustCurryWith(prometheus.Labels{"service": service})
	return &http.Client{
		Timeout:   timeout,
		Transport: promhttp.InstrumentRoundTripperDuration(observer, http.DefaultTransport),
	}
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
