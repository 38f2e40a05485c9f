// Package fillpoller is the background cooperative task that watermarks
// fills out of the exchange and applies them to the Position Ledger,
// dispatching each one to registered subscribers in exchange-reported
// newest-first order.
package fillpoller

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sdibella/kalshi-mm/internal/journal"
	"github.com/sdibella/kalshi-mm/internal/kalshi"
	"github.com/sdibella/kalshi-mm/internal/ledger"
	"github.com/sdibella/kalshi-mm/internal/metrics"
)

// Exchange is the subset of the Kalshi client the poller depends on.
type Exchange interface {
	GetFills(ctx context.Context, params url.Values) ([]kalshi.Fill, string, error)
	GetBalance(ctx context.Context) (*kalshi.Balance, error)
}

// Subscriber is notified, synchronously and in newest-first order within
// one poll, after a fill has been applied to the ledger.
type Subscriber func(f ledger.Fill)

// Poller owns the fill watermark and the ledger it feeds.
type Poller struct {
	client       Exchange
	ledger       *ledger.Ledger
	ticker       string
	interval     time.Duration
	limit        int
	log          *zap.SugaredLogger
	journal      *journal.Journal
	subscribers  []Subscriber
	lastFillTS   int64
	lastFillID   string
	lastBalance  int64
}

func New(client Exchange, led *ledger.Ledger, ticker string, interval time.Duration, limit int, log *zap.SugaredLogger) *Poller {
	return &Poller{
		client:   client,
		ledger:   led,
		ticker:   ticker,
		interval: interval,
		limit:    limit,
		log:      log,
	}
}

// Subscribe registers a callback invoked once per newly-applied fill.
func (p *Poller) Subscribe(s Subscriber) {
	p.subscribers = append(p.subscribers, s)
}

// SetJournal attaches an audit journal. Optional; nil is a no-op.
func (p *Poller) SetJournal(j *journal.Journal) {
	p.journal = j
}

// LastBalance returns the balance most recently observed after applying
// new fills (0 if none have been applied yet).
func (p *Poller) LastBalance() int64 {
	return p.lastBalance
}

// Bootstrap fetches up to 10 most-recent fills and sets the watermark to
// the newest one without applying them: they predate process start and
// are already reflected in the exchange's own positions endpoint.
func (p *Poller) Bootstrap(ctx context.Context) error {
	params := url.Values{}
	params.Set("ticker", p.ticker)
	params.Set("limit", "10")

	fills, _, err := p.client.GetFills(ctx, params)
	if err != nil {
		return err
	}
	if len(fills) == 0 {
		return nil
	}

	newest := fills[0]
	ts, err := parseFillTimestamp(newest.CreatedTime)
	if err != nil {
		return err
	}
	p.lastFillTS = ts
	p.lastFillID = newest.FillID
	return nil
}

// Run drives the poll loop until ctx is cancelled, sleeping interval
// between polls. Any per-poll error is logged and the next poll retries
// from the same watermark.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				p.log.Warnw("fill poll failed, retrying from last watermark", "ticker", p.ticker, "error", err)
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	params := url.Values{}
	params.Set("ticker", p.ticker)
	params.Set("min_ts", strconv.FormatInt(p.lastFillTS, 10))
	params.Set("limit", strconv.Itoa(p.limit))

	fills, _, err := p.client.GetFills(ctx, params)
	if err != nil {
		return err
	}

	var fresh []kalshi.Fill
	for _, f := range fills {
		if f.FillID == p.lastFillID {
			break
		}
		fresh = append(fresh, f)
	}

	if len(fresh) == 0 {
		return nil
	}

	for _, f := range fresh {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ts, err := parseFillTimestamp(f.CreatedTime)
		if err != nil {
			p.log.Warnw("skipping fill with unparseable timestamp", "fill_id", f.FillID, "error", err)
			continue
		}

		lf := ledger.Fill{
			FillID:      f.FillID,
			OrderID:     f.OrderID,
			Ticker:      f.Ticker,
			Action:      f.Action,
			Count:       f.Count,
			YesPrice:    f.YesPrice,
			CreatedTime: time.Unix(ts, 0).UTC(),
		}
		p.ledger.ApplyFill(lf)
		metrics.FillsAppliedTotal.Inc()

		pos := p.ledger.Get(f.Ticker)
		metrics.RealizedPnLCents.WithLabelValues(f.Ticker).Set(float64(pos.RealizedPnL))
		if p.journal != nil {
			_ = p.journal.Log(journal.NewFillApplied(f.Ticker, f.FillID, f.OrderID, f.Action, f.Count, f.YesPrice, pos.NetContracts, pos.RealizedPnL))
		}

		for _, sub := range p.subscribers {
			sub(lf)
		}
	}

	if bal, err := p.client.GetBalance(ctx); err == nil {
		p.lastBalance = int64(bal.Balance)
	} else {
		p.log.Warnw("failed to refresh balance after new fills", "error", err)
	}

	newest := fresh[0]
	newestTS, err := parseFillTimestamp(newest.CreatedTime)
	if err == nil {
		p.lastFillTS = newestTS
		p.lastFillID = newest.FillID
	}

	return nil
}

func parseFillTimestamp(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
