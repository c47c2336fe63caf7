// Package metrics exports flow lifecycle events as Prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

const namespace = "ragchat"

// FlowObserver is a flow.Observer that records flow and node lifecycle
// events on a Prometheus registry.
type FlowObserver struct {
	flowsStarted   *prometheus.CounterVec
	flowsCompleted *prometheus.CounterVec
	flowsFailed    *prometheus.CounterVec
	nodeRetries    *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
}

var _ flow.Observer = (*FlowObserver)(nil)

// NewFlowObserver creates the observer and registers its collectors on
// reg. Pass prometheus.DefaultRegisterer to use the default registry.
func NewFlowObserver(reg prometheus.Registerer) *FlowObserver {
	o := &FlowObserver{
		flowsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flows_started_total",
				Help:      "Total number of flow runs started",
			},
			[]string{"flow"},
		),
		flowsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flows_completed_total",
				Help:      "Total number of flow runs that finished without error",
			},
			[]string{"flow", "action"},
		),
		flowsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flows_failed_total",
				Help:      "Total number of flow runs aborted by an error",
			},
			[]string{"flow"},
		),
		nodeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_retries_total",
				Help:      "Total number of retried node attempts",
			},
			[]string{"node"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Histogram of node run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node", "status"}, // status: success, error
		),
	}
	reg.MustRegister(
		o.flowsStarted,
		o.flowsCompleted,
		o.flowsFailed,
		o.nodeRetries,
		o.nodeDuration,
	)
	return o
}

func (o *FlowObserver) OnFlowStart(ctx context.Context, flowName string) {
	o.flowsStarted.WithLabelValues(flowName).Inc()
}

func (o *FlowObserver) OnFlowCompleted(ctx context.Context, flowName string, action flow.Action) {
	o.flowsCompleted.WithLabelValues(flowName, string(action)).Inc()
}

func (o *FlowObserver) OnFlowFailed(ctx context.Context, flowName string, err error) {
	o.flowsFailed.WithLabelValues(flowName).Inc()
}

func (o *FlowObserver) OnNodeStart(ctx context.Context, nodeName string) {}

func (o *FlowObserver) OnNodeCompleted(ctx context.Context, nodeName string, action flow.Action, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	o.nodeDuration.WithLabelValues(nodeName, status).Observe(d.Seconds())
}

func (o *FlowObserver) OnNodeRetry(ctx context.Context, nodeName string, attempt int, err error) {
	o.nodeRetries.WithLabelValues(nodeName).Inc()
}
