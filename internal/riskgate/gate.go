package riskgate

import (
	"sync"

	"github.com/sdibella/kalshi-mm/internal/ledger"
)

// Gate adapts the pure CanAdd/MaxSize functions into the stateful,
// single-ticker-aware contract the Quoter depends on: it resolves "every
// *other* ticker's exposure" from the ledger and tracks the latest known
// available balance, refreshed by the control loop each tick.
type Gate struct {
	mu      sync.Mutex
	ledger  *ledger.Ledger
	limits  Limits
	balance int64
}

func NewGate(led *ledger.Ledger, limits Limits) *Gate {
	return &Gate{ledger: led, limits: limits}
}

// SetBalance updates the cached available-balance figure used by MaxSize.
func (g *Gate) SetBalance(cents int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance = cents
}

func (g *Gate) CanAdd(pos ledger.Position, side Side, contracts, priceCents int) (bool, string) {
	other := g.otherExposure(pos.Ticker)
	return CanAdd(pos, side, contracts, priceCents, g.limits, other)
}

func (g *Gate) MaxSize(pos ledger.Position, side Side, priceCents int) int {
	g.mu.Lock()
	balance := g.balance
	g.mu.Unlock()
	other := g.otherExposure(pos.Ticker)
	return MaxSize(pos, side, priceCents, g.limits, other, balance)
}

// otherExposure sums exposure for every ticker but the given one, marking
// each position to market at its own average entry price since the gate
// has no live quote for tickers this instance isn't actively making.
func (g *Gate) otherExposure(ticker string) int64 {
	var total int64
	for _, p := range g.ledger.All() {
		if p.Ticker == ticker {
			continue
		}
		markPrice := int(p.AvgEntryPrice.Round(0).IntPart())
		total += p.ExposureCents(markPrice)
	}
	return total
}
