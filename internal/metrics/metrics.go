package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "morafusion"

// Registry is the process-wide Prometheus registry.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// LoginAttempts counts password-stage login attempts by result
// (pending_mfa, invalid_credentials, locked, inactive).
var LoginAttempts = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Password-stage login attempts by result",
	},
	[]string{"result"},
)

// AccountLockouts counts accounts locked after repeated password failures.
var AccountLockouts = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_lockouts_total",
		Help:      "Accounts locked after reaching the failed-attempt threshold",
	},
)

// MFAChallenges counts second-factor codes issued and their verification
// outcomes (issued, verified, rejected).
var MFAChallenges = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mfa_challenges_total",
		Help:      "Second-factor challenges by stage and outcome",
	},
	[]string{"stage"},
)

// AccessDenials counts role and ownership gate denials.
var AccessDenials = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denials_total",
		Help:      "Requests denied by an access-control gate",
	},
	[]string{"gate"},
)

// AuditWriteFailures counts audit trail writes that failed and were
// reported through the observability channel instead.
var AuditWriteFailures = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Audit trail writes that failed",
	},
)

// Handler serves the registry at /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
