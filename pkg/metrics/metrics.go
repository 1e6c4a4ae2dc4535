// Package metrics содержит Prometheus-коллекторы сервиса.
// Все методы безопасны для вызова на nil-получателе: если метрики выключены,
// вызовы превращаются в no-op.
package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "edu_booking"

// Metrics набор метрик сервиса
type Metrics struct {
	serviceName string

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration    *prometheus.HistogramVec
	DBQueryErrors      *prometheus.CounterVec
	DBOpenConnections  *prometheus.GaugeVec
	DBInUseConnections *prometheus.GaugeVec
	DBIdleConnections  *prometheus.GaugeVec
	DBWaitCount        *prometheus.GaugeVec

	BookingsCreated  *prometheus.CounterVec
	BookingConflicts *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
}

// New создает метрики и регистрирует их в глобальном реестре Prometheus
func New(serviceName string) *Metrics {
	return NewWithRegisterer(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegisterer создает метрики в указанном реестре
func NewWithRegisterer(serviceName string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		serviceName: serviceName,

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"service", "method", "route", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method", "route"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query latency by operation.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"service", "operation"}),

		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_query_errors_total",
			Help:      "Failed database queries by operation.",
		}, []string{"service", "operation"}),

		DBOpenConnections: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_open_connections",
			Help:      "Open connections in the pool.",
		}, []string{"service"}),

		DBInUseConnections: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_in_use_connections",
			Help:      "Connections currently in use.",
		}, []string{"service"}),

		DBIdleConnections: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_idle_connections",
			Help:      "Idle connections in the pool.",
		}, []string{"service"}),

		DBWaitCount: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_wait_count",
			Help:      "Total number of connections waited for.",
		}, []string{"service"}),

		BookingsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Created bookings by initial status.",
		}, []string{"service", "status"}),

		BookingConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected because the teacher slot is taken.",
		}, []string{"service"}),

		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_events_total",
			Help:      "Payment provider events by kind and reconciliation outcome.",
		}, []string{"service", "kind", "outcome"}),
	}
}

// ObserveHTTPRequest фиксирует обработанный HTTP запрос
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, route).Observe(duration.Seconds())
}

// ObserveDBQuery фиксирует выполнение запроса к БД
func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
	if err != nil && err != sql.ErrNoRows {
		m.DBQueryErrors.WithLabelValues(m.serviceName, operation).Inc()
	}
}

// SetDBStats обновляет метрики пула соединений
func (m *Metrics) SetDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBOpenConnections.WithLabelValues(m.serviceName).Set(float64(stats.OpenConnections))
	m.DBInUseConnections.WithLabelValues(m.serviceName).Set(float64(stats.InUse))
	m.DBIdleConnections.WithLabelValues(m.serviceName).Set(float64(stats.Idle))
	m.DBWaitCount.WithLabelValues(m.serviceName).Set(float64(stats.WaitCount))
}

// IncBookingCreated увеличивает счетчик созданных бронирований
func (m *Metrics) IncBookingCreated(status string) {
	if m == nil {
		return
	}
	m.BookingsCreated.WithLabelValues(m.serviceName, status).Inc()
}

// IncBookingConflict увеличивает счетчик отказов из-за пересечения слотов
func (m *Metrics) IncBookingConflict() {
	if m == nil {
		return
	}
	m.BookingConflicts.WithLabelValues(m.serviceName).Inc()
}

// IncWebhookEvent увеличивает счетчик обработанных событий платежного провайдера
func (m *Metrics) IncWebhookEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(m.serviceName, kind, outcome).Inc()
}
