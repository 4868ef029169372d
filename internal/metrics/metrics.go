// Package metrics exposes wazir's runtime counters through the default
// Prometheus registry, grounded on the registration style of
// internal/prometheus in the open-policy-agent/opa pack repo
// (prometheus.NewCounterVec + MustRegister at package init). Unlike OPA's
// per-Provider registry, wazir's engine has no HTTP surface of its own
// (spec.md's Non-goals exclude a built-in metrics server), so these
// collectors register against prometheus.DefaultRegisterer and a host
// process wires /metrics itself via promhttp.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FunctionsCalled counts every Wasm function invocation the executor
	// dispatches; calls to host functions are not counted.
	FunctionsCalled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wazir",
		Subsystem: "exec",
		Name:      "functions_called_total",
		Help:      "Total number of Wasm function invocations dispatched.",
	})

	// InstructionsExecuted counts every IR record the dispatch loop
	// executes, a rough proxy for interpreter throughput.
	InstructionsExecuted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wazir",
		Subsystem: "exec",
		Name:      "instructions_executed_total",
		Help:      "Total number of IR records executed by the dispatch loop.",
	})

	// TrapsTotal counts traps by their TrapCode string, letting an operator
	// see which trap kind is firing without reading logs.
	TrapsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wazir",
		Subsystem: "exec",
		Name:      "traps_total",
		Help:      "Total number of traps raised, partitioned by trap code.",
	}, []string{"code"})
)

func init() {
	prometheus.MustRegister(FunctionsCalled, InstructionsExecuted, TrapsTotal)
}
