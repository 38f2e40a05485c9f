package quoter

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sdibella/kalshi-mm/internal/journal"
	"github.com/sdibella/kalshi-mm/internal/ledger"
	"github.com/sdibella/kalshi-mm/internal/metrics"
	"github.com/sdibella/kalshi-mm/internal/riskgate"
)

// OrderPlacer is the narrow Order Manager contract the Quoter depends on.
type OrderPlacer interface {
	Place(ctx context.Context, ticker, action, side string, price, size int) (orderID string, err error)
	Cancel(ctx context.Context, orderID string) error
	CancelBatch(ctx context.Context, orderIDs []string) error
}

// RiskChecker is the narrow Risk Gate contract the Quoter depends on.
type RiskChecker interface {
	CanAdd(pos ledger.Position, side riskgate.Side, contracts, priceCents int) (allowed bool, reason string)
}

// State is one of Empty, LongLeg, ShortLeg, Quoted, derived from which
// order ids are present — never stored as a separate enum field.
type State string

const (
	StateEmpty    State = "empty"
	StateLongLeg  State = "long_leg"
	StateShortLeg State = "short_leg"
	StateQuoted   State = "quoted"
)

// QuoteState is every field independently present or absent; "has both"
// and "has one" are distinct states.
type QuoteState struct {
	BidOrderID   string
	AskOrderID   string
	BidPrice     int
	AskPrice     int
	LastMidpoint int
	hasBid       bool
	hasAsk       bool
}

func (q QuoteState) State() State {
	switch {
	case q.hasBid && q.hasAsk:
		return StateQuoted
	case q.hasBid:
		return StateLongLeg
	case q.hasAsk:
		return StateShortLeg
	default:
		return StateEmpty
	}
}

// Quoter is the stateful per-ticker two-sided maker. Its QuoteState is
// mutated both by the control loop (via UpdateQuotes) and by the fill
// poller (via OnFill), which run on separate goroutines; a mutex guards
// every read and write of it.
type Quoter struct {
	mu     sync.Mutex
	ticker string
	size   int
	pricing PricingConfig
	orders OrderPlacer
	risk   RiskChecker
	ledger  *ledger.Ledger
	log     *zap.SugaredLogger
	journal *journal.Journal

	state QuoteState
}

func New(ticker string, size int, pricing PricingConfig, orders OrderPlacer, risk RiskChecker, led *ledger.Ledger, log *zap.SugaredLogger) *Quoter {
	return &Quoter{
		ticker:  ticker,
		size:    size,
		pricing: pricing,
		orders:  orders,
		risk:    risk,
		ledger:  led,
		log:     log,
	}
}

// SetJournal attaches an audit journal. Optional; nil is a no-op.
func (q *Quoter) SetJournal(j *journal.Journal) {
	q.journal = j
}

func (q *Quoter) State() QuoteState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// ShouldRequote is the single decision function gating UpdateQuotes calls.
func (q *Quoter) ShouldRequote(bestBid, bestAsk, skew int) (bool, string) {
	q.mu.Lock()
	st := q.state
	q.mu.Unlock()

	if st.State() == StateEmpty {
		return true, "no quotes"
	}

	newBid, newAsk := Price(bestBid, bestAsk, skew, q.pricing)
	if newBid != st.BidPrice || newAsk != st.AskPrice {
		return true, "calculated quotes differ"
	}
	if st.BidPrice > bestBid {
		return true, "bid would be taken by market"
	}
	if st.AskPrice < bestAsk {
		return true, "ask would be taken by market"
	}
	if st.BidPrice >= st.AskPrice {
		return true, "quotes crossed"
	}
	return false, ""
}

// CancelQuotes cancels whatever legs are currently resting. On API
// success the state becomes Empty. On failure the state is left unchanged
// unless forceClear is set (shutdown and known-closed markets), in which
// case the local state is cleared regardless of exchange acknowledgement.
func (q *Quoter) CancelQuotes(ctx context.Context, forceClear bool) error {
	q.mu.Lock()
	st := q.state
	q.mu.Unlock()

	var ids []string
	if st.hasBid {
		ids = append(ids, st.BidOrderID)
	}
	if st.hasAsk {
		ids = append(ids, st.AskOrderID)
	}
	if len(ids) == 0 {
		return nil
	}

	err := q.orders.CancelBatch(ctx, ids)
	if err != nil && !forceClear {
		return err
	}

	if q.journal != nil {
		reason := "requote"
		if forceClear {
			reason = "force_clear"
		}
		_ = q.journal.Log(journal.NewQuoteCancelled(q.ticker, ids, reason, forceClear))
	}

	q.mu.Lock()
	q.state = QuoteState{}
	q.mu.Unlock()
	return err
}

// UpdateQuotes is CancelQuotes followed by PlaceQuotes.
func (q *Quoter) UpdateQuotes(ctx context.Context, bestBid, bestAsk, skew int) error {
	if err := q.CancelQuotes(ctx, false); err != nil {
		q.log.Warnw("cancel before requote failed, proceeding to place anyway", "ticker", q.ticker, "error", err)
	}
	return q.PlaceQuotes(ctx, bestBid, bestAsk, skew)
}

// PlaceQuotes atomically attempts both legs, risk-gating each
// independently, and applies one-sided cleanup if exactly one leg landed.
func (q *Quoter) PlaceQuotes(ctx context.Context, bestBid, bestAsk, skew int) error {
	bid, ask := Price(bestBid, bestAsk, skew, q.pricing)

	pos := q.ledger.Get(q.ticker)

	var next QuoteState
	next.LastMidpoint = (bestBid + bestAsk) / 2

	if allowed, reason := q.risk.CanAdd(pos, riskgate.SideYes, q.size, bid); allowed {
		id, err := q.orders.Place(ctx, q.ticker, "buy", "yes", bid, q.size)
		if err != nil {
			q.log.Warnw("bid placement failed", "ticker", q.ticker, "price", bid, "error", err)
		} else {
			next.BidOrderID = id
			next.BidPrice = bid
			next.hasBid = true
			if q.journal != nil {
				_ = q.journal.Log(journal.NewQuotePlaced(q.ticker, "buy", "yes", bid, q.size, id))
			}
		}
	} else {
		q.log.Infow("bid blocked by risk gate", "ticker", q.ticker, "price", bid, "reason", reason)
		metrics.RiskBlockedTotal.WithLabelValues("yes").Inc()
		if q.journal != nil {
			_ = q.journal.Log(journal.NewRiskBlocked(q.ticker, "yes", q.size, bid, reason))
		}
	}

	// Selling YES accrues NO exposure: risk-gate the ask leg on the NO side
	// at the complementary price, but the order itself still sells YES at
	// the YES-axis ask price. side=no above is a risk-accounting view
	// only, not the order's actual side.
	if allowed, reason := q.risk.CanAdd(pos, riskgate.SideNo, q.size, 100-ask); allowed {
		id, err := q.orders.Place(ctx, q.ticker, "sell", "yes", ask, q.size)
		if err != nil {
			q.log.Warnw("ask placement failed", "ticker", q.ticker, "price", ask, "error", err)
		} else {
			next.AskOrderID = id
			next.AskPrice = ask
			next.hasAsk = true
			if q.journal != nil {
				_ = q.journal.Log(journal.NewQuotePlaced(q.ticker, "sell", "yes", ask, q.size, id))
			}
		}
	} else {
		q.log.Infow("ask blocked by risk gate", "ticker", q.ticker, "price", ask, "reason", reason)
		metrics.RiskBlockedTotal.WithLabelValues("no").Inc()
		if q.journal != nil {
			_ = q.journal.Log(journal.NewRiskBlocked(q.ticker, "no", q.size, ask, reason))
		}
	}

	if next.hasBid != next.hasAsk {
		net := pos.NetContracts
		if next.hasBid && net >= 0 {
			if err := q.orders.Cancel(ctx, next.BidOrderID); err != nil {
				q.log.Warnw("one-sided cleanup cancel failed", "ticker", q.ticker, "error", err)
			}
			if q.journal != nil {
				_ = q.journal.Log(journal.NewQuoteCancelled(q.ticker, []string{next.BidOrderID}, "one_sided_cleanup", false))
			}
			next.hasBid = false
			next.BidOrderID = ""
			next.BidPrice = 0
		} else if next.hasAsk && net <= 0 {
			if err := q.orders.Cancel(ctx, next.AskOrderID); err != nil {
				q.log.Warnw("one-sided cleanup cancel failed", "ticker", q.ticker, "error", err)
			}
			if q.journal != nil {
				_ = q.journal.Log(journal.NewQuoteCancelled(q.ticker, []string{next.AskOrderID}, "one_sided_cleanup", false))
			}
			next.hasAsk = false
			next.AskOrderID = ""
			next.AskPrice = 0
		}
		// Otherwise the lone leg reduces risk and is kept.
	}

	q.mu.Lock()
	q.state = next
	q.mu.Unlock()
	return nil
}

// OnFill nulls whichever leg's order id matches the fill's order id. It
// runs synchronously inside the Fill Poller; the next control-loop tick
// observes the resulting partial-quote state and requotes.
func (q *Quoter) OnFill(fillOrderID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.hasBid && q.state.BidOrderID == fillOrderID {
		q.state.hasBid = false
		q.state.BidOrderID = ""
		q.state.BidPrice = 0
	} else if q.state.hasAsk && q.state.AskOrderID == fillOrderID {
		q.state.hasAsk = false
		q.state.AskOrderID = ""
		q.state.AskPrice = 0
	}
}
