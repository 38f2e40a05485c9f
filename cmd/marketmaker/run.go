package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sdibella/kalshi-mm/internal/config"
	"github.com/sdibella/kalshi-mm/internal/control"
	"github.com/sdibella/kalshi-mm/internal/dashboard"
	"github.com/sdibella/kalshi-mm/internal/fillpoller"
	"github.com/sdibella/kalshi-mm/internal/journal"
	"github.com/sdibella/kalshi-mm/internal/kalshi"
	"github.com/sdibella/kalshi-mm/internal/ledger"
	"github.com/sdibella/kalshi-mm/internal/logging"
	"github.com/sdibella/kalshi-mm/internal/ordermgr"
	"github.com/sdibella/kalshi-mm/internal/quoter"
	"github.com/sdibella/kalshi-mm/internal/riskgate"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Quote one Kalshi market continuously",
	Long: `run loads configuration from the environment, authenticates against
the Kalshi REST API, and drives the control loop until interrupted or the
configured max runtime elapses. Shutdown always cancels the quote legs
the quoter is tracking before exit, regardless of how the loop stopped;
other resting orders on the exchange are left as they are.`,
	RunE: runMarketMaker,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runMarketMaker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Infow("marketmaker starting", "ticker", cfg.MarketTicker, "env", cfg.KalshiEnv, "dry_run", cfg.DryRun)

	client, err := kalshi.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("building kalshi client: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bal, err := client.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("auth check failed, cannot reach kalshi api: %w", err)
	}
	log.Infow("authenticated", "balance_cents", bal.Balance)

	j, err := journal.New(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()
	_ = j.Log(journal.NewSessionStart(cfg.MarketTicker, cfg.KalshiEnv, cfg.DryRun, bal.Balance))

	led := ledger.New()
	if err := seedLedgerFromExchange(ctx, client, led, cfg.MarketTicker); err != nil {
		log.Warnw("position bootstrap failed, starting flat", "error", err)
	}

	gate := riskgate.NewGate(led, riskgate.Limits{
		MaxPositionSize:       cfg.MaxPositionSize,
		MaxTotalExposureCents: int64(cfg.MaxTotalExposureCents),
	})
	gate.SetBalance(int64(bal.Balance))

	orders := ordermgr.New(client, cfg.DryRun, log)

	q := quoter.New(cfg.MarketTicker, cfg.QuoteSize, quoter.PricingConfig{SpreadWidth: cfg.SpreadWidth}, orders, gate, led, log)
	q.SetJournal(j)

	poller := fillpoller.New(client, led, cfg.MarketTicker, time.Duration(cfg.FillPollIntervalSeconds)*time.Second, cfg.FillPollLimit, log)
	poller.SetJournal(j)
	poller.Subscribe(func(f ledger.Fill) { q.OnFill(f.OrderID) })
	if err := poller.Bootstrap(ctx); err != nil {
		log.Warnw("fill poller bootstrap failed, starting watermark at zero", "error", err)
	}
	go poller.Run(ctx)

	dashSrv := dashboard.NewServer(dashboard.Config{Port: cfg.DashboardPort, Host: cfg.DashboardHost, JournalPath: cfg.JournalPath}, nil, log)

	loop := control.New(control.Config{
		Ticker:                   cfg.MarketTicker,
		LoopInterval:             time.Duration(cfg.LoopIntervalSeconds) * time.Second,
		InventorySkewPerContract: cfg.InventorySkewPerContract,
		MaxRuntime:               time.Duration(cfg.MaxRuntimeSeconds) * time.Second,
	}, client, led, gate, q, dashSrv.Hub(), j, log)

	dashSrv.SetProvider(loop)
	go func() {
		if err := dashSrv.Start(); err != nil {
			log.Errorw("dashboard server stopped", "error", err)
		}
	}()
	defer func() {
		if err := dashSrv.Stop(); err != nil {
			log.Warnw("dashboard server shutdown error", "error", err)
		}
	}()

	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("control loop: %w", err)
	}

	log.Infow("marketmaker stopped")
	return nil
}

// seedLedgerFromExchange rebuilds the local position for ticker from the
// exchange's own positions endpoint at startup. There is no persisted
// process state across restarts; the exchange is the only source of truth
// for a position opened in a prior run.
func seedLedgerFromExchange(ctx context.Context, client *kalshi.Client, led *ledger.Ledger, ticker string) error {
	positions, err := client.GetPositions(ctx, "")
	if err != nil {
		return fmt.Errorf("fetching positions: %w", err)
	}

	for _, p := range positions {
		if p.Ticker != ticker || p.Position == 0 {
			continue
		}

		avgEntry := decimal.Zero
		contracts := p.Position
		if contracts < 0 {
			contracts = -contracts
		}
		if contracts > 0 {
			priceCents := decimal.NewFromInt(int64(p.MarketExposure)).Div(decimal.NewFromInt(int64(contracts)))
			if p.Position > 0 {
				avgEntry = priceCents
			} else {
				avgEntry = decimal.NewFromInt(100).Sub(priceCents)
			}
		}

		led.Seed(ticker, p.Position, avgEntry, int64(p.RealizedPnl))
		return nil
	}
	return nil
}
