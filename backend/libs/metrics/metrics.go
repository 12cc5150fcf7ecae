// Package metrics holds the prometheus collectors shared by the services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var settlementsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "charging",
	Name:      "settlements_total",
	Help:      "Settlement runs by outcome.",
}, []string{"outcome"})

var settlementAttempts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "charging",
	Name:      "settlement_payment_attempts_total",
	Help:      "Calls to processPayment made by the settlement orchestrator.",
})

var settlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "charging",
	Name:      "settlement_duration_seconds",
	Help:      "Wall time of one settlement run.",
	Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
})

var ledgerCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "payment",
	Name:      "ledger_operations_total",
	Help:      "Wallet debit and credit operations by result.",
}, []string{"kind", "result"})

var eventsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "events",
	Name:      "consumed_total",
	Help:      "Session lifecycle events handled by consumers.",
}, []string{"type", "result"})

var ocppCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "station",
	Name:      "ocpp_messages_total",
	Help:      "OCPP calls received from charge points by action and result.",
}, []string{"action", "result"})

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "station",
	Name:      "ocpp_connections_active",
	Help:      "Number of connected charge points.",
})

// ObserveSettlement counts one settlement run.
func ObserveSettlement(outcome string, seconds float64) {
	if outcome == "" {
		return
	}
	settlementsCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
	settlementDuration.Observe(seconds)
}

// CountSettlementAttempt counts one processPayment call.
func CountSettlementAttempt() {
	settlementAttempts.Inc()
}

// CountLedger counts a wallet mutation.
func CountLedger(kind, result string) {
	ledgerCounter.With(prometheus.Labels{"kind": kind, "result": result}).Inc()
}

// CountEvent counts an event delivery.
func CountEvent(eventType, result string) {
	eventsCounter.With(prometheus.Labels{"type": eventType, "result": result}).Inc()
}

// CountOCPP counts one OCPP call.
func CountOCPP(action, result string) {
	ocppCounter.With(prometheus.Labels{"action": action, "result": result}).Inc()
}

// ObserveConnections sets the number of live charger sockets.
func ObserveConnections(count int) {
	connectionsGauge.Set(float64(count))
}

// Handler serves /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
