// Package metrics collects the mediator's Prometheus instrumentation
// against a dedicated registry (Go and process collectors plus the
// broker/dispatch counters below), served by internal/httpapi's
// "/metrics" route.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

// BrokerPublishes counts BrokerChannel.Publish calls by result.
var BrokerPublishes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mediator",
	Subsystem: "broker",
	Name:      "publishes_total",
	Help:      "Number of broker channel publish attempts.",
}, []string{"result"})

// BrokerReads counts BrokerChannel.Read calls by result.
var BrokerReads = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mediator",
	Subsystem: "broker",
	Name:      "reads_total",
	Help:      "Number of broker channel read attempts.",
}, []string{"result"})

// DispatchOutcomes counts PushDispatcher.Deliver calls by resulting status.
var DispatchOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mediator",
	Subsystem: "dispatch",
	Name:      "outcomes_total",
	Help:      "Number of push dispatch attempts by outcome.",
}, []string{"status"})

// BrokerRotations counts broker-failover rehoming events.
var BrokerRotations = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "mediator",
	Subsystem: "broker",
	Name:      "rotations_total",
	Help:      "Number of endpoint broker-rotation events.",
})

func init() {
	registry.MustRegister(collectors.NewGoCollector())
	if runtime.GOOS == "linux" || runtime.GOOS == "windows" {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{ReportErrors: true}))
	}
	registry.MustRegister(BrokerPublishes, BrokerReads, DispatchOutcomes, BrokerRotations)
}

// Handler serves the registry's collected metrics over HTTP, bounding
// concurrent scrapes the way a shared registry in a busy process should.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling:       promhttp.ContinueOnError,
		Registry:            registry,
		MaxRequestsInFlight: 10,
		Timeout:             5 * time.Second,
	})
}
