package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDecisions counts admin decisions on access requests by action.
	RequestDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatehouse_access_request_decisions_total",
		Help: "Access request decisions by action (approve, reject, revoke).",
	}, []string{"action"})

	// RequestsSubmitted counts submitted access requests by outcome.
	RequestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatehouse_access_requests_submitted_total",
		Help: "Access request submissions by outcome (created, conflict, rejected_input).",
	}, []string{"outcome"})

	// MailFailures counts notification dispatch failures by notice kind.
	MailFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatehouse_mail_failures_total",
		Help: "Notification dispatch failures by notice kind.",
	}, []string{"kind"})

	// RedisErrors counts Redis command errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatehouse_redis_errors_total",
		Help: "Redis command errors by command.",
	}, []string{"command"})
)

var (
	prom     *fiberprometheus.FiberPrometheus
	promOnce sync.Once
)

// InitMetrics creates the Prometheus middleware for the given service name.
// The underlying collectors register with the default registry, so the
// middleware is built once per process.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware wraps the fiberprometheus middleware as a fiber.Handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
