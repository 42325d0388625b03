package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verification outcome labels.
const (
	OutcomeCompleted      = "completed"
	OutcomeAmountMismatch = "amount_mismatch"
	OutcomeNotPaid        = "not_paid"
	OutcomeAlreadyDone    = "already_handled"
)

// PaymentMetrics tracks the order preparation and verification flows. A nil
// receiver is a no-op so wiring stays optional in tests.
type PaymentMetrics struct {
	prepared      prometheus.Counter
	verifications *prometheus.CounterVec
	cancellations prometheus.Counter
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		prepared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "payments",
			Name:      "orders_prepared_total",
			Help:      "Total number of pending orders created.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "payments",
			Name:      "verifications_total",
			Help:      "Payment verification calls by outcome.",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "payments",
			Name:      "compensating_cancellations_total",
			Help:      "Compensating gateway cancellations attempted after an amount mismatch.",
		}),
	}
	reg.MustRegister(m.prepared, m.verifications, m.cancellations)
	return m
}

func (m *PaymentMetrics) ObservePrepared() {
	if m == nil {
		return
	}
	m.prepared.Inc()
}

func (m *PaymentMetrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
