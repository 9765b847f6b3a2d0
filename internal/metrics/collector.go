// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector exposes Prometheus metrics for executions, providers, connectors
// and the job queue.
type Collector struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec

	nodeExecutionsTotal *prometheus.CounterVec
	nodeDuration        *prometheus.HistogramVec

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec
	llmFallbacksTotal  *prometheus.CounterVec

	connectorCallsTotal   *prometheus.CounterVec
	connectorCallDuration *prometheus.HistogramVec

	queueJobs *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector registers the metric families on the default registerer.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith registers on an explicit registerer, mainly for tests.
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.executionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Total number of agent executions",
		},
		[]string{"agent_id", "status"},
	)
	c.executionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Agent execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent_id"},
	)

	c.nodeExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Total number of node executions",
		},
		[]string{"node_type", "status"},
	)
	c.nodeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Node execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node_type"},
	)

	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)
	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)
	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model"},
	)
	c.llmFallbacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_fallbacks_total",
			Help:      "Total number of fallbacks from one provider to another",
		},
		[]string{"from_provider", "to_provider"},
	)

	c.connectorCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_calls_total",
			Help:      "Total number of connector executions",
		},
		[]string{"connector", "status"},
	)
	c.connectorCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connector_call_duration_seconds",
			Help:      "Connector execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"connector"},
	)

	c.queueJobs = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_jobs",
			Help:      "Number of queued jobs by status",
		},
		[]string{"status"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordExecution records one finished agent run.
func (c *Collector) RecordExecution(agentID, status string, duration time.Duration) {
	c.executionsTotal.WithLabelValues(agentID, status).Inc()
	c.executionDuration.WithLabelValues(agentID).Observe(duration.Seconds())
}

// RecordNode records one node execution.
func (c *Collector) RecordNode(nodeType, status string, duration time.Duration) {
	c.nodeExecutionsTotal.WithLabelValues(nodeType, status).Inc()
	c.nodeDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
}

// RecordLLMRequest records one provider call.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, tokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if tokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// RecordLLMFallback records an advance through the fallback chain.
func (c *Collector) RecordLLMFallback(from, to string) {
	c.llmFallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordConnectorCall records one connector execution.
func (c *Collector) RecordConnectorCall(connector, status string, duration time.Duration) {
	c.connectorCallsTotal.WithLabelValues(connector, status).Inc()
	c.connectorCallDuration.WithLabelValues(connector).Observe(duration.Seconds())
}

// SetQueueJobs publishes the queue census.
func (c *Collector) SetQueueJobs(counts map[string]int) {
	for status, n := range counts {
		c.queueJobs.WithLabelValues(status).Set(float64(n))
	}
}
