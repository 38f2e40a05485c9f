package fillpoller

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdibella/kalshi-mm/internal/kalshi"
	"github.com/sdibella/kalshi-mm/internal/ledger"
	"github.com/sdibella/kalshi-mm/internal/logging"
)

type fakeExchange struct {
	fillsByCall [][]kalshi.Fill
	callIdx     int
	balance     int
}

func (f *fakeExchange) GetFills(ctx context.Context, params url.Values) ([]kalshi.Fill, string, error) {
	if f.callIdx >= len(f.fillsByCall) {
		return nil, "", nil
	}
	fills := f.fillsByCall[f.callIdx]
	f.callIdx++
	return fills, "", nil
}

func (f *fakeExchange) GetBalance(ctx context.Context) (*kalshi.Balance, error) {
	return &kalshi.Balance{Balance: f.balance}, nil
}

func newTestPoller(t *testing.T, ex Exchange) (*Poller, *ledger.Ledger) {
	log, err := logging.New("error")
	require.NoError(t, err)
	led := ledger.New()
	p := New(ex, led, "KXTEST-1", time.Second, 100, log)
	return p, led
}

func TestBootstrapDoesNotApplyPreExistingFills(t *testing.T) {
	ex := &fakeExchange{
		fillsByCall: [][]kalshi.Fill{
			{{FillID: "f0", Ticker: "KXTEST-1", Action: "buy", Count: 5, YesPrice: 40, CreatedTime: "2026-01-01T00:00:00Z"}},
		},
	}
	p, led := newTestPoller(t, ex)

	require.NoError(t, p.Bootstrap(context.Background()))
	assert.Equal(t, "f0", p.lastFillID)
	assert.Equal(t, 0, led.Get("KXTEST-1").NetContracts)
}

func TestPollAppliesNewestFirstUntilWatermark(t *testing.T) {
	ex := &fakeExchange{
		fillsByCall: [][]kalshi.Fill{
			{
				{FillID: "f2", Ticker: "KXTEST-1", Action: "buy", Count: 1, YesPrice: 50, CreatedTime: "2026-01-01T00:02:00Z"},
				{FillID: "f1", Ticker: "KXTEST-1", Action: "buy", Count: 1, YesPrice: 45, CreatedTime: "2026-01-01T00:01:00Z"},
			},
		},
		balance: 10000,
	}
	p, led := newTestPoller(t, ex)
	p.lastFillID = "f1"
	p.lastFillTS = 0

	var seen []string
	p.Subscribe(func(f ledger.Fill) { seen = append(seen, f.FillID) })

	require.NoError(t, p.poll(context.Background()))

	assert.Equal(t, []string{"f2"}, seen)
	assert.Equal(t, 1, led.Get("KXTEST-1").NetContracts)
	assert.Equal(t, "f2", p.lastFillID)
	assert.EqualValues(t, 10000, p.LastBalance())
}

func TestPollIsNoopWhenNoNewFills(t *testing.T) {
	ex := &fakeExchange{
		fillsByCall: [][]kalshi.Fill{
			{{FillID: "f1", Action: "buy", Count: 1, YesPrice: 45, CreatedTime: "2026-01-01T00:01:00Z"}},
		},
	}
	p, led := newTestPoller(t, ex)
	p.lastFillID = "f1"

	require.NoError(t, p.poll(context.Background()))
	assert.Equal(t, 0, led.Get("KXTEST-1").NetContracts)
}
