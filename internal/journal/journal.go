// Package journal is an append-only JSONL audit log: one line per tick
// decision, placement, cancel, fill, and risk-block, plus a session-start
// record. It supplements spec.md's scope — a log is not persisted state,
// so it does not conflict with the "no persisted state across restarts"
// non-goal; restart still rebuilds the ledger from the exchange.
package journal

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Journal is an append-only JSONL writer for market-maker events.
type Journal struct {
	f  *os.File
	mu sync.Mutex
}

// New opens (or creates) the journal file in append mode.
func New(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &Journal{f: f}, nil
}

// Log marshals event to JSON and appends it as a single fsync'd line.
func (j *Journal) Log(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err = j.f.Write(data); err != nil {
		return err
	}
	return j.f.Sync()
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

// Event types.

type SessionStart struct {
	Type         string `json:"type"`
	Time         string `json:"time"`
	Ticker       string `json:"ticker"`
	DryRun       bool   `json:"dry_run"`
	Env          string `json:"env"`
	BalanceCents int    `json:"balance_cents"`
}

func NewSessionStart(ticker, env string, dryRun bool, balanceCents int) SessionStart {
	return SessionStart{
		Type:         "session_start",
		Time:         now(),
		Ticker:       ticker,
		DryRun:       dryRun,
		Env:          env,
		BalanceCents: balanceCents,
	}
}

// Tick records a single control-loop decision to requote.
type Tick struct {
	Type    string `json:"type"`
	Time    string `json:"time"`
	Ticker  string `json:"ticker"`
	Reason  string `json:"reason"`
	BestBid int    `json:"best_bid"`
	BestAsk int    `json:"best_ask"`
	Skew    int    `json:"skew"`
}

func NewTick(ticker, reason string, bestBid, bestAsk, skew int) Tick {
	return Tick{
		Type:    "tick",
		Time:    now(),
		Ticker:  ticker,
		Reason:  reason,
		BestBid: bestBid,
		BestAsk: bestAsk,
		Skew:    skew,
	}
}

// QuotePlaced records a single leg placement.
type QuotePlaced struct {
	Type    string `json:"type"`
	Time    string `json:"time"`
	Ticker  string `json:"ticker"`
	Action  string `json:"action"`
	Side    string `json:"side"`
	Price   int    `json:"price"`
	Size    int    `json:"size"`
	OrderID string `json:"order_id"`
}

func NewQuotePlaced(ticker, action, side string, price, size int, orderID string) QuotePlaced {
	return QuotePlaced{
		Type:    "quote_placed",
		Time:    now(),
		Ticker:  ticker,
		Action:  action,
		Side:    side,
		Price:   price,
		Size:    size,
		OrderID: orderID,
	}
}

// QuoteCancelled records a cancel (single or batch).
type QuoteCancelled struct {
	Type     string   `json:"type"`
	Time     string   `json:"time"`
	Ticker   string   `json:"ticker"`
	OrderIDs []string `json:"order_ids"`
	Reason   string   `json:"reason"`
	Forced   bool     `json:"forced"`
}

func NewQuoteCancelled(ticker string, orderIDs []string, reason string, forced bool) QuoteCancelled {
	return QuoteCancelled{
		Type:     "quote_cancelled",
		Time:     now(),
		Ticker:   ticker,
		OrderIDs: orderIDs,
		Reason:   reason,
		Forced:   forced,
	}
}

// FillApplied records a fill reconciled into the ledger.
type FillApplied struct {
	Type        string `json:"type"`
	Time        string `json:"time"`
	Ticker      string `json:"ticker"`
	FillID      string `json:"fill_id"`
	OrderID     string `json:"order_id"`
	Action      string `json:"action"`
	Count       int    `json:"count"`
	YesPrice    int    `json:"yes_price"`
	NetAfter    int    `json:"net_after"`
	RealizedPnL int64  `json:"realized_pnl_cents"`
}

func NewFillApplied(ticker, fillID, orderID, action string, count, yesPrice, netAfter int, realizedPnL int64) FillApplied {
	return FillApplied{
		Type:        "fill_applied",
		Time:        now(),
		Ticker:      ticker,
		FillID:      fillID,
		OrderID:     orderID,
		Action:      action,
		Count:       count,
		YesPrice:    yesPrice,
		NetAfter:    netAfter,
		RealizedPnL: realizedPnL,
	}
}

// RiskBlocked records a candidate order the risk gate refused.
type RiskBlocked struct {
	Type      string `json:"type"`
	Time      string `json:"time"`
	Ticker    string `json:"ticker"`
	Side      string `json:"side"`
	Contracts int    `json:"contracts"`
	Price     int    `json:"price"`
	Reason    string `json:"reason"`
}

func NewRiskBlocked(ticker, side string, contracts, price int, reason string) RiskBlocked {
	return RiskBlocked{
		Type:      "risk_blocked",
		Time:      now(),
		Ticker:    ticker,
		Side:      side,
		Contracts: contracts,
		Price:     price,
		Reason:    reason,
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
