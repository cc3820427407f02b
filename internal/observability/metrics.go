// Package observability exposes the service's Prometheus metrics over a
// private registry so tests never collide on the global one.
package observability

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prom.Registry

	ScansStarted   prom.Counter
	ScansDelivered prom.Counter
	ScansTimedOut  prom.Counter

	routerRequests        *prom.CounterVec
	routerRequestFailures prom.Counter
}

func NewMetrics() *Metrics {
	reg := prom.NewRegistry()
	m := &Metrics{
		registry: reg,
		ScansStarted: prom.NewCounter(prom.CounterOpts{
			Name: "wifimand_scans_started_total",
			Help: "Wireless scans triggered on the router.",
		}),
		ScansDelivered: prom.NewCounter(prom.CounterOpts{
			Name: "wifimand_scans_delivered_total",
			Help: "Scan results delivered to a client.",
		}),
		ScansTimedOut: prom.NewCounter(prom.CounterOpts{
			Name: "wifimand_scans_timed_out_total",
			Help: "Scan sessions abandoned after the result deadline.",
		}),
		routerRequests: prom.NewCounterVec(prom.CounterOpts{
			Name: "wifimand_router_requests_total",
			Help: "Calls issued against the router REST API.",
		}, []string{"method"}),
		routerRequestFailures: prom.NewCounter(prom.CounterOpts{
			Name: "wifimand_router_request_failures_total",
			Help: "Router REST calls that failed at the transport level.",
		}),
	}
	reg.MustRegister(m.ScansStarted, m.ScansDelivered, m.ScansTimedOut, m.routerRequests, m.routerRequestFailures)
	return m
}

// Scan lifecycle hooks, wired as the orchestrator's observer.

func (m *Metrics) ScanStarted()   { m.ScansStarted.Inc() }
func (m *Metrics) ScanDelivered() { m.ScansDelivered.Inc() }
func (m *Metrics) ScanTimedOut()  { m.ScansTimedOut.Inc() }

// ObserveRouterRequest is wired as the routeros client's request hook.
func (m *Metrics) ObserveRouterRequest(method string, failed bool) {
	m.routerRequests.WithLabelValues(method).Inc()
	if failed {
		m.routerRequestFailures.Inc()
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
