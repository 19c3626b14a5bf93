package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 汇总订单服务的业务指标
type Metrics struct {
	Creations       *prometheus.CounterVec
	PublishFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Creations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "order_creations_total",
			Help: "Order creation attempts by result (fulfilled, partial_fulfillment, nothing_reserved, duplicate, failed).",
		}, []string{"result"}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "order_outcome_publish_failures_total",
			Help: "Outcome events that could not be published; their reservations stay locked until repaired.",
		}),
	}
}
