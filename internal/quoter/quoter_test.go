package quoter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sdibella/kalshi-mm/internal/ledger"
	"github.com/sdibella/kalshi-mm/internal/logging"
	"github.com/sdibella/kalshi-mm/internal/riskgate"
)

type placedOrder struct {
	action, side string
	price, size  int
}

type fakePlacer struct {
	nextID    int
	placed    []string
	orders    []placedOrder
	cancelled []string
	blockBid  bool
	blockAsk  bool
}

func (f *fakePlacer) Place(ctx context.Context, ticker, action, side string, price, size int) (string, error) {
	f.nextID++
	id := action + "-" + side
	f.placed = append(f.placed, id)
	f.orders = append(f.orders, placedOrder{action: action, side: side, price: price, size: size})
	return id, nil
}

func (f *fakePlacer) Cancel(ctx context.Context, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakePlacer) CancelBatch(ctx context.Context, orderIDs []string) error {
	f.cancelled = append(f.cancelled, orderIDs...)
	return nil
}

type fakeRisk struct {
	blockYes bool
	blockNo  bool
}

func (r *fakeRisk) CanAdd(pos ledger.Position, side riskgate.Side, contracts, priceCents int) (bool, string) {
	if side == riskgate.SideYes && r.blockYes {
		return false, "blocked"
	}
	if side == riskgate.SideNo && r.blockNo {
		return false, "blocked"
	}
	return true, ""
}

func newTestQuoter(t *testing.T, placer *fakePlacer, risk *fakeRisk) (*Quoter, *ledger.Ledger) {
	log, err := logging.New("error")
	if err != nil {
		t.Fatal(err)
	}
	led := ledger.New()
	q := New("KXTEST-1", 5, PricingConfig{SpreadWidth: 6}, placer, risk, led, log)
	return q, led
}

func TestShouldRequoteWhenEmpty(t *testing.T) {
	q, _ := newTestQuoter(t, &fakePlacer{}, &fakeRisk{})
	should, reason := q.ShouldRequote(50, 52, 0)
	if !should {
		t.Fatalf("expected requote from empty state, got false")
	}
	if reason == "" {
		t.Fatalf("expected a reason")
	}
}

func TestPlaceQuotesBothLegsLandsQuoted(t *testing.T) {
	placer := &fakePlacer{}
	q, _ := newTestQuoter(t, placer, &fakeRisk{})

	if err := q.PlaceQuotes(context.Background(), 50, 52, 0); err != nil {
		t.Fatal(err)
	}
	if q.State().State() != StateQuoted {
		t.Fatalf("expected Quoted, got %s", q.State().State())
	}
}

func TestPlaceQuotesAskLegPlacesOnYesAxis(t *testing.T) {
	placer := &fakePlacer{}
	q, _ := newTestQuoter(t, placer, &fakeRisk{})

	if err := q.PlaceQuotes(context.Background(), 50, 52, 0); err != nil {
		t.Fatal(err)
	}

	var askOrder *placedOrder
	for i := range placer.orders {
		if placer.orders[i].action == "sell" {
			askOrder = &placer.orders[i]
		}
	}
	if askOrder == nil {
		t.Fatalf("expected a sell order to be placed")
	}
	// The ask leg is risk-gated as side=no at 100-ask (NO-exposure
	// accounting), but the order itself still sells YES at the YES-axis
	// ask price.
	if askOrder.side != "yes" {
		t.Fatalf("expected ask leg to place with side=yes, got %q", askOrder.side)
	}
	st := q.State()
	if askOrder.price != st.AskPrice {
		t.Fatalf("expected ask leg price %d (yes-axis), got %d", st.AskPrice, askOrder.price)
	}
}

func TestPlaceQuotesOneSidedCleanupCancelsBidWhenNetNonNegative(t *testing.T) {
	placer := &fakePlacer{}
	risk := &fakeRisk{blockNo: true} // only the bid leg can land
	q, _ := newTestQuoter(t, placer, risk)

	if err := q.PlaceQuotes(context.Background(), 50, 52, 0); err != nil {
		t.Fatal(err)
	}
	if q.State().State() != StateEmpty {
		t.Fatalf("expected one-sided bid to be cancelled (net>=0), got %s", q.State().State())
	}
	if len(placer.cancelled) != 1 {
		t.Fatalf("expected exactly one cancel, got %d", len(placer.cancelled))
	}
}

func TestPlaceQuotesOneSidedKeptWhenRiskReducing(t *testing.T) {
	placer := &fakePlacer{}
	risk := &fakeRisk{blockNo: true}
	q, led := newTestQuoter(t, placer, risk)
	led.Seed("KXTEST-1", -10, decimal.NewFromInt(40), 0)

	if err := q.PlaceQuotes(context.Background(), 50, 52, 0); err != nil {
		t.Fatal(err)
	}
	// net<0 and only the bid landed: buying YES reduces the short, so it's kept.
	if q.State().State() != StateLongLeg {
		t.Fatalf("expected lone risk-reducing bid to be kept, got %s", q.State().State())
	}
}

func TestOnFillClearsMatchingLegOnly(t *testing.T) {
	placer := &fakePlacer{}
	q, _ := newTestQuoter(t, placer, &fakeRisk{})
	q.PlaceQuotes(context.Background(), 50, 52, 0)

	st := q.State()
	q.OnFill(st.BidOrderID)

	after := q.State()
	if after.hasBid {
		t.Fatalf("expected bid leg cleared")
	}
	if !after.hasAsk {
		t.Fatalf("expected ask leg untouched")
	}

	should, _ := q.ShouldRequote(50, 52, 0)
	if !should {
		t.Fatalf("expected requote after partial fill")
	}
}
