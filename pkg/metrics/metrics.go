package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	CartMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Total number of cart mutations by operation",
		},
		[]string{"operation"}, // add, update, remove, clear, merge
	)

	OrdersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created at checkout",
		},
	)

	OrderStatusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status transitions by target status",
		},
		[]string{"status"},
	)

	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Emails processed from the notification queue",
		},
		[]string{"template", "outcome"}, // outcome: sent, failed
	)

	NewsletterSubscribersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_subscribers_total",
			Help: "Total newsletter subscriptions accepted",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		CartMutationsTotal,
		OrdersCreatedTotal,
		OrderStatusTransitionsTotal,
		EmailsSentTotal,
		NewsletterSubscribersTotal,
	)
}

// ObserveHTTPRequest records metrics for an HTTP request
func ObserveHTTPRequest(method, path, status string, startedAt time.Time) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, path, status).Observe(time.Since(startedAt).Seconds())
}
