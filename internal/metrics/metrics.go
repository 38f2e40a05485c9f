// Package metrics declares the Prometheus collectors exposed on the
// dashboard server's /metrics endpoint — ambient observability beyond
// spec.md's explicit scope, in the style of the pack's execution metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts completed control-loop ticks.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketmaker_ticks_total",
		Help: "Total number of control-loop ticks completed",
	})

	// RequoteTotal counts successful requote cycles.
	RequoteTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketmaker_requotes_total",
		Help: "Total number of successful requote cycles",
	})

	// FillsAppliedTotal counts fills applied to the ledger.
	FillsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketmaker_fills_applied_total",
		Help: "Total number of fills applied to the position ledger",
	})

	// RiskBlockedTotal counts orders blocked by the risk gate, by leg.
	RiskBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketmaker_risk_blocked_total",
			Help: "Total number of candidate orders blocked by the risk gate",
		},
		[]string{"side"},
	)

	// NetPosition is the current signed net contract count per ticker.
	NetPosition = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketmaker_net_position_contracts",
			Help: "Current net position in contracts, signed on the YES axis",
		},
		[]string{"ticker"},
	)

	// ExposureCents is the current maximum-loss exposure per ticker.
	ExposureCents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketmaker_exposure_cents",
			Help: "Current exposure in cents, marked at the best YES ask",
		},
		[]string{"ticker"},
	)

	// RealizedPnLCents is the cumulative realized P&L per ticker.
	RealizedPnLCents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketmaker_realized_pnl_cents",
			Help: "Cumulative realized profit and loss in cents",
		},
		[]string{"ticker"},
	)
)
