package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrderCreateTotal counts gateway order creation attempts by result.
	OrderCreateTotal *prometheus.CounterVec
	// CaptureTotal counts capture callback processing by outcome.
	CaptureTotal *prometheus.CounterVec
	// EnrolmentsDeliveredTotal counts entitlements granted after capture.
	EnrolmentsDeliveredTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers payment-domain Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrderCreateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_create_total",
			Help:      "Count of gateway order creation attempts by result.",
		}, []string{"result"})
		CaptureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_total",
			Help:      "Count of capture callback outcomes.",
		}, []string{"outcome"})
		EnrolmentsDeliveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrolments_delivered_total",
			Help:      "Number of enrolments granted after successful captures.",
		})

		mustRegisterCollector(reg, OrderCreateTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderCreateTotal = v
			}
		})
		mustRegisterCollector(reg, CaptureTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CaptureTotal = v
			}
		})
		mustRegisterCollector(reg, EnrolmentsDeliveredTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				EnrolmentsDeliveredTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
