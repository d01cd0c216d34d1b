package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of submissions rejected by the rate limiter",
	},
)

var GrpcRateLimitRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "grpc_rate_limit_rejections_total",
		Help: "Total number of gRPC calls rejected by the rate limiter",
	},
	[]string{"method"},
)

var SubmissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "santua_submissions_total",
		Help: "Found and lost submissions by classification",
	},
	[]string{"kind", "status"},
)

var EntriesDeletedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "santua_entries_deleted_total",
		Help: "Entries removed by admin deletions",
	},
	[]string{"kind"},
)

var StickersGeneratedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "santua_stickers_generated_total",
		Help: "Sticker records created by batch generation",
	},
)

var StickersActivatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "santua_stickers_activated_total",
		Help: "Sticker activations by payment confirmation",
	},
	[]string{"source"},
)

var PaymentVerificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "santua_payment_verifications_total",
		Help: "Payment provider verification outcomes",
	},
	[]string{"result"},
)

var NotificationsAttemptedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_attempted_total",
		Help: "Total number of match notifications attempted",
	},
	[]string{"sink", "status"},
)

var ExternalAPIDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "external_api_duration_seconds",
		Help:    "Duration of external API calls in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider", "service"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpRateLimitRejectionsTotal)
	prometheus.MustRegister(GrpcRateLimitRejectionsTotal)
}

func InitDomainMetrics() {
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(EntriesDeletedTotal)
	prometheus.MustRegister(StickersGeneratedTotal)
	prometheus.MustRegister(StickersActivatedTotal)
	prometheus.MustRegister(PaymentVerificationsTotal)
	prometheus.MustRegister(NotificationsAttemptedTotal)
	prometheus.MustRegister(ExternalAPIDuration)
}
