package utils

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TransactionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gymease_transactions_created_total",
			Help: "Number of transactions created",
		},
	)

	TransactionsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gymease_transactions_confirmed_total",
			Help: "Number of transactions confirmed as paid",
		},
	)

	TransactionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gymease_transactions_expired_total",
			Help: "Number of unpaid transactions moved to expired",
		},
	)

	PaymentQRFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymease_payment_qr_failures_total",
			Help: "Failed attempts to mint a payment QR code",
		},
		[]string{"provider"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymease_notifications_total",
			Help: "Notification delivery attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymease_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

var registerOnce sync.Once

// RegisterMetrics registers every collector with the default registry
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			TransactionsCreated,
			TransactionsConfirmed,
			TransactionsExpired,
			PaymentQRFailures,
			Notifications,
			HTTPRequestDuration,
		)
	})
}
