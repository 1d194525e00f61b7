// Package metrics holds the process-wide prometheus counters.
//
// Nothing here serves HTTP; a CLI invocation can dump the registry in the
// node-exporter textfile format when asked to.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	bulkItems   *prometheus.CounterVec
)

func setup() {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posadmin_api_requests_total",
			Help: "REST calls issued by the collection stores, by kind, operation and outcome.",
		}, []string{"kind", "op", "outcome"})
		bulkItems = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posadmin_bulk_items_total",
			Help: "Items processed by bulk operations, by operation and outcome.",
		}, []string{"op", "outcome"})
		registry.MustRegister(apiRequests, bulkItems)
	})
}

// Registry returns the private registry all counters live in.
func Registry() *prometheus.Registry {
	setup()
	return registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveAPI counts one API call.
func ObserveAPI(kind, op string, err error) {
	setup()
	apiRequests.WithLabelValues(kind, op, outcome(err)).Inc()
}

// ObserveBulk counts bulk items by outcome.
func ObserveBulk(op string, succeeded, failed int) {
	setup()
	if succeeded > 0 {
		bulkItems.WithLabelValues(op, "ok").Add(float64(succeeded))
	}
	if failed > 0 {
		bulkItems.WithLabelValues(op, "error").Add(float64(failed))
	}
}

// WriteTextfile writes the registry to path (atomically, via prometheus' helper).
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry())
}
