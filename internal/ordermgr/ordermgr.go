// Package ordermgr is the thin translation layer between the Quoter's
// place/cancel intent and exchange client calls. It keeps no state beyond
// in-flight requests and enforces no risk of its own — that is the
// Quoter's job, gated through riskgate before Manager is ever called.
package ordermgr

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sdibella/kalshi-mm/internal/kalshi"
)

// batchLimit is the exchange's maximum number of order ids per
// DELETE /portfolio/orders/batched call.
const batchLimit = 20

// Exchange is the subset of the Kalshi client the Manager depends on,
// narrowed for testability.
type Exchange interface {
	CreateOrder(ctx context.Context, req kalshi.OrderRequest) (*kalshi.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelBatch(ctx context.Context, orderIDs []string) error
}

// Manager is the narrow contract exposed to the Quoter.
type Manager struct {
	client Exchange
	dryRun bool
	log    *zap.SugaredLogger
}

func New(client Exchange, dryRun bool, log *zap.SugaredLogger) *Manager {
	return &Manager{client: client, dryRun: dryRun, log: log}
}

// Place submits a single limit order. action is "buy"/"sell", side is
// "yes"/"no", price is always expressed on the given side's own axis
// (yes_price for side=yes, no_price for side=no).
func (m *Manager) Place(ctx context.Context, ticker, action, side string, price, size int) (orderID string, err error) {
	clientOrderID := uuid.New().String()

	if m.dryRun {
		m.log.Infow("dry-run place", "ticker", ticker, "action", action, "side", side,
			"price", price, "size", size, "client_order_id", clientOrderID)
		return "dry-" + clientOrderID, nil
	}

	req := kalshi.OrderRequest{
		Ticker:        ticker,
		Action:        action,
		Side:          side,
		Type:          "limit",
		Count:         size,
		ClientOrderID: clientOrderID,
	}
	if side == "yes" {
		req.YesPrice = price
	} else {
		req.NoPrice = price
	}

	order, err := m.client.CreateOrder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("placing order: %w", err)
	}
	return order.OrderID, nil
}

// Cancel is idempotent from the caller's view: a double-cancel surfaces an
// error but leaves equivalent state (no resting order either way).
func (m *Manager) Cancel(ctx context.Context, orderID string) error {
	if m.dryRun || orderID == "" {
		return nil
	}
	if err := m.client.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	return nil
}

// CancelBatch fans orderIDs out in groups of at most batchLimit. A partial
// failure within a group is an error; there is no partial-success ledger.
func (m *Manager) CancelBatch(ctx context.Context, orderIDs []string) error {
	if m.dryRun || len(orderIDs) == 0 {
		return nil
	}
	for start := 0; start < len(orderIDs); start += batchLimit {
		end := start + batchLimit
		if end > len(orderIDs) {
			end = len(orderIDs)
		}
		if err := m.client.CancelBatch(ctx, orderIDs[start:end]); err != nil {
			return fmt.Errorf("batch cancelling orders: %w", err)
		}
	}
	return nil
}
