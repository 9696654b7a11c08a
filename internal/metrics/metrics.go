package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Checkout struct {
	Placed   prometheus.Counter
	Failures *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewCheckout() *Checkout {
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "orders_placed_total",
		Help:      "Orders placed successfully.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "order_failures_total",
		Help:      "Order placements aborted, by error kind.",
	}, []string{"kind"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "checkout",
		Name:      "placement_duration_seconds",
		Help:      "End-to-end order placement latency.",
		Buckets:   prometheus.DefBuckets,
	})

	prometheus.MustRegister(placed, failures, duration)
	return &Checkout{Placed: placed, Failures: failures, Duration: duration}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
