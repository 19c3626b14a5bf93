package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 汇总库存服务的业务指标
type Metrics struct {
	Reservations        *prometheus.CounterVec
	ReservationDuration prometheus.Histogram
	Compensations       *prometheus.CounterVec
	StaleLedgers        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reservations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Reservation attempts by outcome (fulfilled, partial_fulfillment, failed).",
		}, []string{"status"}),
		ReservationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "inventory_reservation_duration_seconds",
			Help:    "Latency of the reservation transaction.",
			Buckets: prometheus.DefBuckets,
		}),
		Compensations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_compensations_total",
			Help: "Order outcome events reconciled, by result (restored, cleared, skipped, failed).",
		}, []string{"result"}),
		StaleLedgers: f.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_stale_ledgers",
			Help: "Reservation ledgers older than the staleness threshold.",
		}),
	}
}
