package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	promNamespace = "fnstream"
)

var (
	durationBuckets = []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5} // 14 items

	operationDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "operation_duration_seconds",
		Buckets:   durationBuckets,
	}, []string{"op"})

	operationStatusCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "operation_status",
	}, []string{"op", "status"})

	emissionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "emissions_total",
	}, []string{"op"})

	listenerFaultCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "listener_faults_total",
	})

	pendingTimersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "loop_pending_timers",
	})
)

func TrackDuration(operation string) func() {
	start := time.Now()
	return func() {
		operationDurationHistogram.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func TrackStatus(operation, status string) {
	operationStatusCounter.WithLabelValues(operation, status).Inc()
}

func TrackEmission(operation string) {
	emissionCounter.WithLabelValues(operation).Inc()
}

func TrackListenerFault() {
	listenerFaultCounter.Inc()
}

func SetPendingTimers(n int) {
	pendingTimersGauge.Set(float64(n))
}
