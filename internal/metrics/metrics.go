package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the gateway collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	credentialAttempts   *prometheus.CounterVec
	retrievalDegradation *prometheus.CounterVec
	chatRequests         *prometheus.CounterVec
	storageFailures      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		credentialAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "credential_attempts_total",
				Help:      "Outbound LLM attempts by credential pool, credential name and outcome.",
			}, []string{"pool", "credential", "outcome"},
		),
		retrievalDegradation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "retrieval_degradations_total",
				Help:      "Retrieval sources that returned nothing or failed, by source and reason.",
			}, []string{"source", "reason"},
		),
		chatRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "chat_requests_total",
				Help:      "Chat requests by response status code.",
			}, []string{"status"},
		),
		storageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "storage_failures_total",
				Help:      "Session store operations that failed and were absorbed.",
			}, []string{"operation"},
		),
	}
	m.Registry.MustRegister(
		m.credentialAttempts,
		m.retrievalDegradation,
		m.chatRequests,
		m.storageFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAttempt records one credential attempt of the failover engine.
func (m *Metrics) ObserveAttempt(pool, credential, outcome string) {
	m.credentialAttempts.WithLabelValues(pool, credential, outcome).Inc()
}

func (m *Metrics) ObserveDegradation(source, reason string) {
	m.retrievalDegradation.WithLabelValues(source, reason).Inc()
}

func (m *Metrics) ObserveChat(status int) {
	m.chatRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveStorageFailure(operation string) {
	m.storageFailures.WithLabelValues(operation).Inc()
}
