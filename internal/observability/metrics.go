package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests    *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Submissions prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_http_errors_total",
			Help: "Total number of 5xx HTTP responses.",
		}, []string{"method"}),
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of finalized applications.",
		}),
	}
	reg.MustRegister(m.Requests, m.Errors, m.Submissions)
	return m
}
