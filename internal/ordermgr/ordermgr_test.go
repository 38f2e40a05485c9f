package ordermgr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sdibella/kalshi-mm/internal/kalshi"
	"github.com/sdibella/kalshi-mm/internal/logging"
)

type fakeExchange struct {
	placed       []kalshi.OrderRequest
	cancelled    []string
	batches      [][]string
	placeErr     error
	cancelErr    error
	batchErr     error
	nextOrderID  string
}

func (f *fakeExchange) CreateOrder(ctx context.Context, req kalshi.OrderRequest) (*kalshi.Order, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = append(f.placed, req)
	id := f.nextOrderID
	if id == "" {
		id = "order-1"
	}
	return &kalshi.Order{OrderID: id}, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeExchange) CancelBatch(ctx context.Context, orderIDs []string) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	cp := append([]string(nil), orderIDs...)
	f.batches = append(f.batches, cp)
	return nil
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	log, err := logging.New("error")
	require.NoError(t, err)
	return log
}

func TestManagerPlaceSendsClientOrderID(t *testing.T) {
	ex := &fakeExchange{nextOrderID: "ord-123"}
	log := testLogger(t)
	m := New(ex, false, log)

	id, err := m.Place(context.Background(), "KXTEST-1", "buy", "yes", 45, 5)
	require.NoError(t, err)
	assert.Equal(t, "ord-123", id)
	require.Len(t, ex.placed, 1)
	assert.NotEmpty(t, ex.placed[0].ClientOrderID)
	assert.Equal(t, 45, ex.placed[0].YesPrice)
}

func TestManagerPlaceDryRunNeverCallsExchange(t *testing.T) {
	ex := &fakeExchange{}
	log := testLogger(t)
	m := New(ex, true, log)

	id, err := m.Place(context.Background(), "KXTEST-1", "buy", "yes", 45, 5)
	require.NoError(t, err)
	assert.Contains(t, id, "dry-")
	assert.Empty(t, ex.placed)
}

func TestManagerCancelBatchChunksAtLimit(t *testing.T) {
	ex := &fakeExchange{}
	log := testLogger(t)
	m := New(ex, false, log)

	ids := make([]string, 45)
	for i := range ids {
		ids[i] = "id"
	}
	err := m.CancelBatch(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, ex.batches, 3)
	assert.Len(t, ex.batches[0], 20)
	assert.Len(t, ex.batches[1], 20)
	assert.Len(t, ex.batches[2], 5)
}

func TestManagerPlaceWrapsError(t *testing.T) {
	ex := &fakeExchange{placeErr: errors.New("boom")}
	log := testLogger(t)
	m := New(ex, false, log)

	_, err := m.Place(context.Background(), "KXTEST-1", "buy", "yes", 45, 5)
	require.Error(t, err)
}
