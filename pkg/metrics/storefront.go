package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics tracks cart synchronization and order placement.
type StorefrontMetrics struct {
	syncPushes   *prometheus.CounterVec
	syncDuration prometheus.Histogram
	ordersPlaced *prometheus.CounterVec
	orderLatency prometheus.Histogram
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	syncPushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_pushes",
		Help: "Cart synchronizer push attempts by outcome.",
	}, []string{"outcome"})
	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_sync_push_duration_seconds",
		Help:    "Duration of cart push operations in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed",
		Help: "Order placement attempts by outcome.",
	}, []string{"outcome"})
	orderLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_placement_duration_seconds",
		Help:    "Duration of order placement transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(syncPushes, syncDuration, ordersPlaced, orderLatency)
	return &StorefrontMetrics{
		syncPushes:   syncPushes,
		syncDuration: syncDuration,
		ordersPlaced: ordersPlaced,
		orderLatency: orderLatency,
	}
}

// IncSyncPush counts a push attempt with the given outcome ("ok" or "error").
func (m *StorefrontMetrics) IncSyncPush(outcome string) {
	if m == nil || m.syncPushes == nil {
		return
	}
	m.syncPushes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveSyncPush records the duration of a push.
func (m *StorefrontMetrics) ObserveSyncPush(duration time.Duration) {
	if m == nil || m.syncDuration == nil {
		return
	}
	m.syncDuration.Observe(duration.Seconds())
}

// IncOrderPlaced counts an order placement attempt with the given outcome.
func (m *StorefrontMetrics) IncOrderPlaced(outcome string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveOrderPlacement records the duration of an order placement transaction.
func (m *StorefrontMetrics) ObserveOrderPlacement(duration time.Duration) {
	if m == nil || m.orderLatency == nil {
		return
	}
	m.orderLatency.Observe(duration.Seconds())
}
