// Package ledger is the authoritative local projection of executed fills
// into net position, average entry price, and realized P&L. It is the
// ground truth the Risk Gate and Quoter consult before every placement.
package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the derived resting side of a position.
type Side string

const (
	SideYes  Side = "YES"
	SideNo   Side = "NO"
	SideFlat Side = "flat"
)

// Fill is an immutable record of an executed trade, as reported by the
// exchange. Position deltas are derived from Action alone (see §9 of the
// owning design notes): the exchange reports fills from the counterparty's
// book view, so the reported Side can be inverted for taker fills.
type Fill struct {
	FillID      string
	OrderID     string
	Ticker      string
	Action      string // "buy" or "sell"
	Count       int
	YesPrice    int // cents, [1,99]
	CreatedTime time.Time
}

// Position is one ticker's net exposure. NetContracts is signed on the YES
// axis: positive is long YES, negative is long NO.
type Position struct {
	Ticker         string
	NetContracts   int
	AvgEntryPrice  decimal.Decimal // cents, YES axis
	RealizedPnL    int64           // cents
	LastFillID     string
	LastUpdated    time.Time
}

// Side returns the resting side of the position.
func (p Position) Side() Side {
	switch {
	case p.NetContracts > 0:
		return SideYes
	case p.NetContracts < 0:
		return SideNo
	default:
		return SideFlat
	}
}

// ExposureCents is the maximum loss if the position resolves against it.
func (p Position) ExposureCents(priceCents int) int64 {
	if p.NetContracts >= 0 {
		return int64(p.NetContracts) * int64(priceCents)
	}
	return int64(-p.NetContracts) * int64(100-priceCents)
}

// Ledger maps ticker to Position, guarded by a single coarse-grained mutex:
// after the startup Seed it is mutated only by the Fill Poller's goroutine
// and read by the Risk Gate / Quoter / control loop from another goroutine.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*Position
	seenFills map[string]struct{}
}

func New() *Ledger {
	return &Ledger{
		positions: make(map[string]*Position),
		seenFills: make(map[string]struct{}),
	}
}

// Get returns the position for ticker, creating a zero position on miss.
func (l *Ledger) Get(ticker string) Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(ticker)
}

func (l *Ledger) getLocked(ticker string) Position {
	p, ok := l.positions[ticker]
	if !ok {
		p = &Position{Ticker: ticker, AvgEntryPrice: decimal.Zero}
		l.positions[ticker] = p
	}
	return *p
}

// All returns a snapshot of every known position.
func (l *Ledger) All() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// Seed sets a position directly from an exchange bootstrap read, bypassing
// apply_fill. Used once at startup to rebuild state without persistence.
func (l *Ledger) Seed(ticker string, netContracts int, avgEntryPrice decimal.Decimal, realizedPnL int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[ticker] = &Position{
		Ticker:        ticker,
		NetContracts:  netContracts,
		AvgEntryPrice: avgEntryPrice,
		RealizedPnL:   realizedPnL,
		LastUpdated:   time.Now(),
	}
}

// ApplyFill mutates the ledger per a single fill. Applying the same
// FillID twice is a no-op (invariant 6: fill idempotence).
func (l *Ledger) ApplyFill(f Fill) Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.seenFills[f.FillID]; seen {
		return l.getLocked(f.Ticker)
	}
	l.seenFills[f.FillID] = struct{}{}

	pos := l.getLocked(f.Ticker)

	delta := f.Count
	if f.Action == "sell" {
		delta = -f.Count
	}

	old := pos.NetContracts
	newNet := old + delta
	price := decimal.NewFromInt(int64(f.YesPrice))

	switch {
	case old == 0 || sameSign(old, delta):
		// Opening or adding: weighted-mean cost over the new total.
		oldCost := pos.AvgEntryPrice.Mul(decimal.NewFromInt(int64(abs(old))))
		addCost := price.Mul(decimal.NewFromInt(int64(f.Count)))
		total := abs(newNet)
		if total > 0 {
			pos.AvgEntryPrice = oldCost.Add(addCost).Div(decimal.NewFromInt(int64(total)))
		}

	default:
		// Reducing or flipping.
		closed := minInt(abs(old), abs(delta))
		if old > 0 {
			pos.RealizedPnL += price.Sub(pos.AvgEntryPrice).Mul(decimal.NewFromInt(int64(closed))).Round(0).IntPart()
		} else {
			pos.RealizedPnL += pos.AvgEntryPrice.Sub(price).Mul(decimal.NewFromInt(int64(closed))).Round(0).IntPart()
		}
		if newNet != 0 && sign(newNet) != sign(old) {
			pos.AvgEntryPrice = price
		}
	}

	pos.NetContracts = newNet
	pos.LastFillID = f.FillID
	pos.LastUpdated = f.CreatedTime
	if pos.LastUpdated.IsZero() {
		pos.LastUpdated = time.Now()
	}

	l.positions[f.Ticker] = &pos
	return pos
}

func sameSign(a, b int) bool {
	if a == 0 || b == 0 {
		return true
	}
	return (a > 0) == (b > 0)
}

func sign(a int) int {
	switch {
	case a > 0:
		return 1
	case a < 0:
		return -1
	default:
		return 0
	}
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
