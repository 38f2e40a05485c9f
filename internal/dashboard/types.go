package dashboard

import "time"

// Snapshot is the live view model pushed to connected dashboard clients
// once per control-loop tick. It never blocks the loop: publication is a
// bounded, drop-when-full hand-off (see Hub).
type Snapshot struct {
	Time         time.Time `json:"time"`
	Ticker       string    `json:"ticker"`
	Status       string    `json:"status"`
	BestBid      int       `json:"best_bid"`
	BestAsk      int       `json:"best_ask"`
	NetContracts int       `json:"net_contracts"`
	AvgEntry     string    `json:"avg_entry_price"`
	RealizedPnL  int64     `json:"realized_pnl_cents"`
	ExposureCents int64    `json:"exposure_cents"`
	BidOrderID   string    `json:"bid_order_id,omitempty"`
	AskOrderID   string    `json:"ask_order_id,omitempty"`
	BidPrice     int       `json:"bid_price,omitempty"`
	AskPrice     int       `json:"ask_price,omitempty"`
	BalanceCents int       `json:"balance_cents"`
	Error        string    `json:"error,omitempty"`
}

// Event wraps a dashboard push with a discriminator so the UI can route
// it without re-deriving the type from field presence.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewSnapshotEvent wraps a Snapshot for broadcast.
func NewSnapshotEvent(s Snapshot) Event {
	return Event{Type: "snapshot", Timestamp: s.Time, Data: s}
}
