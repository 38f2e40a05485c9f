package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdibella/kalshi-mm/internal/config"
	"github.com/sdibella/kalshi-mm/internal/kalshi"
	"github.com/sdibella/kalshi-mm/internal/logging"
	"github.com/sdibella/kalshi-mm/internal/ordermgr"
)

var demoNonstop bool

var demoCmd = &cobra.Command{
	Use:   "demo <safe-bid> <safe-ask>",
	Short: "Place one resting pair away from the touch, for smoke-testing",
	Long: `demo places a single bid and ask at caller-supplied prices known to be
away from the market touch, to verify order placement and cancellation
without the quoter or risk gate in the loop. With --nonstop it repeats
the place/cancel cycle until interrupted.`,
	Args: cobra.ExactArgs(2),
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoNonstop, "nonstop", false, "repeat the place/cancel cycle until interrupted")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	bid, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("safe-bid must be an integer cent price: %w", err)
	}
	ask, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("safe-ask must be an integer cent price: %w", err)
	}
	if bid < 1 || bid > 99 || ask < 1 || ask > 99 || bid >= ask {
		return fmt.Errorf("safe-bid and safe-ask must satisfy 1 <= bid < ask <= 99")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	client, err := kalshi.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("building kalshi client: %w", err)
	}

	orders := ordermgr.New(client, cfg.DryRun, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for {
		if err := placeAndCancelOnce(ctx, orders, cfg.MarketTicker, bid, ask, cfg.QuoteSize, log); err != nil {
			return err
		}
		if !demoNonstop {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

func placeAndCancelOnce(ctx context.Context, orders *ordermgr.Manager, ticker string, bid, ask, size int, log *zap.SugaredLogger) error {
	bidID, err := orders.Place(ctx, ticker, "buy", "yes", bid, size)
	if err != nil {
		return fmt.Errorf("placing demo bid: %w", err)
	}
	log.Infow("demo bid placed", "ticker", ticker, "price", bid, "order_id", bidID)

	askID, err := orders.Place(ctx, ticker, "sell", "yes", ask, size)
	if err != nil {
		log.Warnw("placing demo ask failed, cancelling bid", "error", err)
		_ = orders.Cancel(ctx, bidID)
		return fmt.Errorf("placing demo ask: %w", err)
	}
	log.Infow("demo ask placed", "ticker", ticker, "price", ask, "order_id", askID)

	if err := orders.CancelBatch(ctx, []string{bidID, askID}); err != nil {
		return fmt.Errorf("cancelling demo pair: %w", err)
	}
	log.Infow("demo pair cancelled", "ticker", ticker)
	return nil
}
