// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Borrows counts borrow attempts by outcome
	// (success, insufficient_copies, not_found, error).
	Borrows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_borrows_total",
		Help: "Borrow attempts by outcome.",
	}, []string{"outcome"})

	// Returns counts return attempts by outcome
	// (success, already_returned, not_found, error).
	Returns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_returns_total",
		Help: "Return attempts by outcome.",
	}, []string{"outcome"})

	// InventoryDiscrepancies counts returns that committed in the ledger
	// but failed the follow-up restock. These are reported, never retried.
	InventoryDiscrepancies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lending_inventory_discrepancies_total",
		Help: "Returns committed in the ledger whose restock failed.",
	})

	// RequestDuration observes HTTP request latency per route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Outcome labels shared by the borrow/return counters.
const (
	OutcomeSuccess            = "success"
	OutcomeNotFound           = "not_found"
	OutcomeInsufficientCopies = "insufficient_copies"
	OutcomeAlreadyReturned    = "already_returned"
	OutcomeError              = "error"
)
