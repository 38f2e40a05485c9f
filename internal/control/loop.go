// Package control is the Trading Control Loop: the single-threaded
// cooperative scheduler that periodically polls the market, asks the
// Quoter to act, and coordinates graceful shutdown even under failure.
package control

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sdibella/kalshi-mm/internal/dashboard"
	"github.com/sdibella/kalshi-mm/internal/journal"
	"github.com/sdibella/kalshi-mm/internal/kalshi"
	"github.com/sdibella/kalshi-mm/internal/ledger"
	"github.com/sdibella/kalshi-mm/internal/metrics"
	"github.com/sdibella/kalshi-mm/internal/quoter"
	"github.com/sdibella/kalshi-mm/internal/riskgate"
)

// MarketSource is the subset of the Kalshi client the loop depends on for
// market data. Orderbook depth is fetched for UI display only; no core
// decision depends on it.
type MarketSource interface {
	GetMarket(ctx context.Context, ticker string) (*kalshi.Market, error)
	GetOrderbook(ctx context.Context, ticker string, depth int) (*kalshi.Orderbook, error)
	GetBalance(ctx context.Context) (*kalshi.Balance, error)
}

// Config is the loop's own tunables, carved out of config.Config.
type Config struct {
	Ticker                   string
	LoopInterval             time.Duration
	InventorySkewPerContract int
	MaxRuntime               time.Duration // 0 = unbounded
}

// Loop wires the Quoter, Risk Gate, Ledger, and dashboard hub together and
// drives the periodic tick described in the component design.
type Loop struct {
	cfg     Config
	market  MarketSource
	ledger  *ledger.Ledger
	gate    *riskgate.Gate
	quoter  *quoter.Quoter
	hub     *dashboard.Hub
	journal *journal.Journal
	log     *zap.SugaredLogger

	lastSnapshot dashboard.Snapshot
	haveSnapshot bool
}

func New(cfg Config, market MarketSource, led *ledger.Ledger, gate *riskgate.Gate, q *quoter.Quoter, hub *dashboard.Hub, j *journal.Journal, log *zap.SugaredLogger) *Loop {
	return &Loop{
		cfg:    cfg,
		market: market,
		ledger: led,
		gate:   gate,
		quoter: q,
		hub:    hub,
		journal: j,
		log:    log,
	}
}

// LastSnapshot implements dashboard.SnapshotProvider.
func (l *Loop) LastSnapshot() (dashboard.Snapshot, bool) {
	return l.lastSnapshot, l.haveSnapshot
}

// Run drives ticks until ctx is cancelled or MaxRuntime elapses. Shutdown
// is unconditional: on any exit path, Run calls cancel-all with
// force_clear and logs the final position and balance.
func (l *Loop) Run(ctx context.Context) error {
	deadline := time.Time{}
	if l.cfg.MaxRuntime > 0 {
		deadline = time.Now().Add(l.cfg.MaxRuntime)
	}

	ticker := time.NewTicker(l.cfg.LoopInterval)
	defer ticker.Stop()

	// Every per-tick error is logged and the loop continues, per the
	// error handling design: the Control Loop never aborts mid-session,
	// only on shutdown (deadline, cancellation, or signal).
loop:
	for {
		if err := l.tick(ctx); err != nil {
			l.log.Warnw("tick error, continuing", "ticker", l.cfg.Ticker, "error", err)
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			l.log.Infow("max runtime reached, shutting down", "ticker", l.cfg.Ticker)
			break loop
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
	}

	l.shutdown(context.Background())
	return nil
}

func (l *Loop) tick(ctx context.Context) error {
	metrics.TicksTotal.Inc()

	market, err := l.market.GetMarket(ctx, l.cfg.Ticker)
	if err != nil {
		return Classify(Transport, fmt.Errorf("fetching market snapshot: %w", err))
	}

	// Orderbook depth is UI-only; a failure here never affects quoting.
	var bestBid, bestAsk int
	if ob, err := l.market.GetOrderbook(ctx, l.cfg.Ticker, 10); err == nil {
		bestBid, bestAsk = ob.BestYesBid(), ob.BestYesAsk()
	} else {
		l.log.Debugw("orderbook fetch failed (ui only)", "error", err)
	}
	if market.YesBid > 0 {
		bestBid = market.YesBid
	}
	if market.YesAsk > 0 {
		bestAsk = market.YesAsk
	}

	pos := l.ledger.Get(l.cfg.Ticker)
	skew := pos.NetContracts * l.cfg.InventorySkewPerContract

	snapshot := dashboard.Snapshot{
		Time:          time.Now().UTC(),
		Ticker:        l.cfg.Ticker,
		Status:        market.Status,
		BestBid:       bestBid,
		BestAsk:       bestAsk,
		NetContracts:  pos.NetContracts,
		AvgEntry:      pos.AvgEntryPrice.String(),
		RealizedPnL:   pos.RealizedPnL,
		ExposureCents: pos.ExposureCents(bestAsk),
	}
	metrics.NetPosition.WithLabelValues(l.cfg.Ticker).Set(float64(pos.NetContracts))
	metrics.ExposureCents.WithLabelValues(l.cfg.Ticker).Set(float64(snapshot.ExposureCents))

	if bal, err := l.market.GetBalance(ctx); err == nil {
		l.gate.SetBalance(int64(bal.Balance))
		snapshot.BalanceCents = bal.Balance
	}

	if market.Status == "active" && market.YesBid > 0 && market.YesAsk > 0 {
		if should, reason := l.quoter.ShouldRequote(bestBid, bestAsk, skew); should {
			if err := l.quoter.UpdateQuotes(ctx, bestBid, bestAsk, skew); err != nil {
				l.log.Warnw("requote failed", "ticker", l.cfg.Ticker, "reason", reason, "error", err)
			} else {
				l.journal.Log(journal.NewTick(l.cfg.Ticker, reason, bestBid, bestAsk, skew))
				metrics.RequoteTotal.Inc()
			}
		}
	} else if l.quoter.State().State() != quoter.StateEmpty {
		if err := l.quoter.CancelQuotes(ctx, false); err != nil {
			l.log.Warnw("cancel on inactive market failed", "ticker", l.cfg.Ticker, "error", err)
		}
	}

	st := l.quoter.State()
	snapshot.BidOrderID, snapshot.AskOrderID = st.BidOrderID, st.AskOrderID
	snapshot.BidPrice, snapshot.AskPrice = st.BidPrice, st.AskPrice

	l.lastSnapshot = snapshot
	l.haveSnapshot = true
	if l.hub != nil {
		l.hub.BroadcastSnapshot(snapshot)
	}

	return nil
}

// shutdown is non-cancellable: it always runs to completion even if the
// loop exited because ctx was already cancelled.
func (l *Loop) shutdown(ctx context.Context) {
	if err := l.quoter.CancelQuotes(ctx, true); err != nil {
		l.log.Warnw("shutdown cancel-all had errors (best-effort)", "error", err)
	}

	pos := l.ledger.Get(l.cfg.Ticker)
	balance := l.lastSnapshot.BalanceCents
	if bal, err := l.market.GetBalance(ctx); err == nil {
		balance = bal.Balance
	}
	l.log.Infow("shutdown complete",
		"ticker", l.cfg.Ticker,
		"net_contracts", pos.NetContracts,
		"avg_entry_price", pos.AvgEntryPrice.String(),
		"realized_pnl_cents", pos.RealizedPnL,
		"balance_cents", balance,
	)
}
