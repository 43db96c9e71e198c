// Package metrics exports the activity of a fluid.ReactiveContext to Prometheus.
package metrics

import (
	"time"

	"github.com/delaneyj/fluid/pkg/fluid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fluid"

// Collector is a fluid.Probe backed by Prometheus metrics. Install it with
// fluid.WithProbe.
type Collector struct {
	computationRuns     *prometheus.CounterVec
	computationErrors   *prometheus.CounterVec
	computationDuration prometheus.Histogram
	signalWrites        prometheus.Counter
	batchCommits        *prometheus.CounterVec
	batchIterations     prometheus.Histogram
}

var _ fluid.Probe = (*Collector)(nil)

// NewCollector registers the fluid metrics on reg and panics if they are
// already registered there.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		computationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computation_runs_total",
			Help:      "Total number of computation executions",
		}, []string{"name"}),

		computationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computation_errors_total",
			Help:      "Total number of computation executions that returned an error",
		}, []string{"name"}),

		computationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "computation_duration_seconds",
			Help:      "Computation execution time in seconds, including nested work",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 10, 8),
		}),

		signalWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_writes_total",
			Help:      "Total number of buffered signal writes",
		}),

		batchCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_commits_total",
			Help:      "Total number of batch commits",
		}, []string{"result"}),

		batchIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_iterations",
			Help:      "Commit loop iterations per batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (c *Collector) ComputationRun(name string, took time.Duration, err error) {
	name = labelOf(name)
	c.computationRuns.WithLabelValues(name).Inc()
	c.computationDuration.Observe(took.Seconds())
	if err != nil {
		c.computationErrors.WithLabelValues(name).Inc()
	}
}

func (c *Collector) SignalWritten(string) {
	c.signalWrites.Inc()
}

func (c *Collector) BatchCommitted(iterations int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.batchCommits.WithLabelValues(result).Inc()
	c.batchIterations.Observe(float64(iterations))
}

// unnamed computations share a single series
func labelOf(name string) string {
	if name == "" {
		return "anonymous"
	}
	return name
}
