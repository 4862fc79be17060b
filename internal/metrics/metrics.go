// Package metrics exposes Prometheus counters for the state layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CartOps counts cart mutations by operation and outcome.
	CartOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventmart",
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	// ProfileOps counts user/profile mutations by operation and outcome.
	ProfileOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventmart",
		Subsystem: "profile",
		Name:      "operations_total",
		Help:      "User and profile mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	// CatalogFallbacks counts catalog requests served from embedded
	// sample data after the backend failed.
	CatalogFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventmart",
		Subsystem: "catalog",
		Name:      "fallbacks_total",
		Help:      "Catalog reads that fell back to sample data.",
	})

	// AccessDenials counts namespaced user-data reads or writes rejected
	// because the caller was not the owning user.
	AccessDenials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventmart",
		Subsystem: "userdata",
		Name:      "access_denials_total",
		Help:      "Cross-user data accesses denied by the ownership check.",
	})
)

// Outcome labels for the operation counters.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)
