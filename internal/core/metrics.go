// AngelaMos | 2026
// metrics.go

package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantgate",
			Name:      "gate_decisions_total",
			Help:      "Authorization gate outcomes by check and error kind.",
		},
		[]string{"check", "kind"},
	)

	QuotaChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantgate",
			Name:      "quota_checks_total",
			Help:      "Plan limit checks by resource and result.",
		},
		[]string{"resource", "result"},
	)

	LoginFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantgate",
			Name:      "login_failures_total",
			Help:      "Failed login attempts by principal kind.",
		},
		[]string{"principal"},
	)

	EmulationSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantgate",
			Name:      "emulation_sessions_total",
			Help:      "Emulation starts and stops.",
		},
		[]string{"action"},
	)
)

// RegisterMetrics registers the collectors on reg. Called once from main;
// tests leave the collectors unregistered.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		GateDecisions,
		QuotaChecks,
		LoginFailures,
		EmulationSessions,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
