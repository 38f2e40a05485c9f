package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mkFill(id, action string, count, price int) Fill {
	return Fill{
		FillID:      id,
		OrderID:     "o-" + id,
		Ticker:      "KXTEST-1",
		Action:      action,
		Count:       count,
		YesPrice:    price,
		CreatedTime: time.Now(),
	}
}

func TestApplyFillSignIndependence(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		count    int
		price    int
		wantNet  int
		wantAvg  string
	}{
		{name: "buy opens long", action: "buy", count: 3, price: 60, wantNet: 3, wantAvg: "60"},
		{name: "sell opens short", action: "sell", count: 3, price: 60, wantNet: -3, wantAvg: "60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			pos := l.ApplyFill(mkFill("f1", tt.action, tt.count, tt.price))
			if pos.NetContracts != tt.wantNet {
				t.Errorf("net = %d, want %d", pos.NetContracts, tt.wantNet)
			}
			want, _ := decimal.NewFromString(tt.wantAvg)
			if !pos.AvgEntryPrice.Equal(want) {
				t.Errorf("avg = %s, want %s", pos.AvgEntryPrice, want)
			}
		})
	}
}

func TestApplyFillRealizedPnLOnClose(t *testing.T) {
	l := New()
	l.Seed("KXTEST-1", 5, decimal.NewFromInt(40), 0)

	pos := l.ApplyFill(mkFill("f1", "sell", 3, 55))

	if pos.NetContracts != 2 {
		t.Fatalf("net = %d, want 2", pos.NetContracts)
	}
	if !pos.AvgEntryPrice.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("avg = %s, want 40", pos.AvgEntryPrice)
	}
	if pos.RealizedPnL != 45 {
		t.Fatalf("realized = %d, want 45", pos.RealizedPnL)
	}
}

func TestApplyFillFlipResetsAvgEntry(t *testing.T) {
	l := New()
	l.Seed("KXTEST-1", 2, decimal.NewFromInt(40), 0)

	pos := l.ApplyFill(mkFill("f1", "sell", 5, 70))

	if pos.NetContracts != -3 {
		t.Fatalf("net = %d, want -3", pos.NetContracts)
	}
	// closed=2 at 70 vs avg 40: realized = (70-40)*2 = 60
	if pos.RealizedPnL != 60 {
		t.Fatalf("realized = %d, want 60", pos.RealizedPnL)
	}
	if !pos.AvgEntryPrice.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("avg after flip = %s, want 70", pos.AvgEntryPrice)
	}
}

func TestApplyFillWeightedAverageOnAdd(t *testing.T) {
	l := New()
	l.Seed("KXTEST-1", 2, decimal.NewFromInt(40), 0)

	pos := l.ApplyFill(mkFill("f1", "buy", 2, 60))

	if pos.NetContracts != 4 {
		t.Fatalf("net = %d, want 4", pos.NetContracts)
	}
	// (2*40 + 2*60) / 4 = 50
	if !pos.AvgEntryPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("avg = %s, want 50", pos.AvgEntryPrice)
	}
}

func TestApplyFillIdempotence(t *testing.T) {
	l := New()
	f := mkFill("dup-1", "buy", 4, 50)

	first := l.ApplyFill(f)
	second := l.ApplyFill(f)

	if !samePosition(first, second) {
		t.Fatalf("reapplying the same fill_id changed state: %+v vs %+v", first, second)
	}
}

func samePosition(a, b Position) bool {
	return a.NetContracts == b.NetContracts &&
		a.AvgEntryPrice.Equal(b.AvgEntryPrice) &&
		a.RealizedPnL == b.RealizedPnL &&
		a.LastFillID == b.LastFillID
}

func TestApplyFillSequenceReplayIsIdempotent(t *testing.T) {
	fills := []Fill{
		mkFill("a", "buy", 5, 40),
		mkFill("b", "sell", 2, 45),
		mkFill("c", "buy", 1, 42),
	}

	apply := func() Position {
		l := New()
		var last Position
		for _, f := range fills {
			last = l.ApplyFill(f)
		}
		// Replay the exact same sequence again; watermark-free idempotence
		// relies on FillID, so re-applying must not move the ledger.
		for _, f := range fills {
			last = l.ApplyFill(f)
		}
		return last
	}

	first := apply()
	second := apply()
	if !samePosition(first, second) {
		t.Fatalf("replaying the same fill sequence twice diverged: %+v vs %+v", first, second)
	}
}

func TestExposureCents(t *testing.T) {
	tests := []struct {
		name    string
		net     int
		price   int
		wantExp int64
	}{
		{name: "long yes", net: 10, price: 60, wantExp: 600},
		{name: "long no", net: -10, price: 60, wantExp: 400},
		{name: "flat", net: 0, price: 60, wantExp: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Position{NetContracts: tt.net}
			if got := p.ExposureCents(tt.price); got != tt.wantExp {
				t.Errorf("exposure = %d, want %d", got, tt.wantExp)
			}
		})
	}
}
