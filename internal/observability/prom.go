package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// completion service
	AIRequestsTotal   *prometheus.CounterVec
	AIRequestDuration *prometheus.HistogramVec
	AITokensTotal     *prometheus.CounterVec

	RateLimitedTotal *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eduai",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eduai",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// AI routes wait on the model, so the tail goes out to minutes
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eduai",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eduai",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eduai",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eduai",
				Subsystem: "ai",
				Name:      "requests_total",
				Help:      "Completion calls by bridge operation and result.",
			},
			[]string{"operation", "result"}, // result=ok|error
		),
		AIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eduai",
				Subsystem: "ai",
				Name:      "request_duration_seconds",
				Help:      "Completion call latency by bridge operation and result.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 180, 300},
			},
			[]string{"operation", "result"},
		),
		AITokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eduai",
				Subsystem: "ai",
				Name:      "tokens_total",
				Help:      "Tokens reported by the completion service.",
			},
			[]string{"operation", "kind"}, // kind=prompt|completion
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eduai",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter.",
			},
			[]string{"scope"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.AIRequestsTotal, p.AIRequestDuration, p.AITokensTotal,
		p.RateLimitedTotal,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveCompletion records one call to the completion service.
func (p *Prom) ObserveCompletion(operation, result string, elapsed time.Duration, promptTokens, completionTokens int) {
	p.AIRequestsTotal.WithLabelValues(operation, result).Inc()
	p.AIRequestDuration.WithLabelValues(operation, result).Observe(elapsed.Seconds())

	if promptTokens > 0 {
		p.AITokensTotal.WithLabelValues(operation, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		p.AITokensTotal.WithLabelValues(operation, "completion").Add(float64(completionTokens))
	}
}

func (p *Prom) ObserveRateLimited(scope string) {
	p.RateLimitedTotal.WithLabelValues(scope).Inc()
}
