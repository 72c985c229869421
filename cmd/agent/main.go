// Command agent runs the autonomous prediction-market trading agent: a
// ticking cycle loop gated by a self-funding survival state machine,
// wiring reasoning-model valuation, Kelly-sized execution, and a health
// HTTP surface together (§4, §6).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/polyagent/config"
	"github.com/alejandrodnm/polyagent/internal/adapters/notify"
	"github.com/alejandrodnm/polyagent/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyagent/internal/adapters/reasoning"
	"github.com/alejandrodnm/polyagent/internal/adapters/storage"
	"github.com/alejandrodnm/polyagent/internal/data"
	"github.com/alejandrodnm/polyagent/internal/health"
	"github.com/alejandrodnm/polyagent/internal/pipeline"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/alejandrodnm/polyagent/internal/resolution"
	"github.com/alejandrodnm/polyagent/internal/risk"
	"github.com/alejandrodnm/polyagent/internal/scheduler"
	"github.com/alejandrodnm/polyagent/internal/valuation"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	setupLogger(*verbose)

	secrets := config.LoadSecrets()

	slog.Info("polyagent starting",
		"config", *configPath,
		"mode", cfg.Agent.Mode,
		"cycle_interval", cfg.CycleInterval(),
		"once", *once,
	)

	ledger, err := storage.NewLedger(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open ledger", "err", err, "path", cfg.Database.Path)
		os.Exit(1)
	}

	market := polymarket.NewClient(polymarket.Config{
		CLOBBaseURL:       cfg.Polymarket.CLOBBaseURL,
		GammaBaseURL:      cfg.Polymarket.GammaBaseURL,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		BackoffBaseMs:     cfg.RateLimit.BackoffBaseMs,
		BackoffMaxMs:      cfg.RateLimit.BackoffMaxMs,
		MaxRetries:        cfg.Execution.MaxRetries,
	})

	trader := newMarketClient(cfg, market, secrets)

	var alerts notify.MultiChannel
	alerts = append(alerts, notify.NewConsole())
	if secrets.DiscordWebhookURL != "" {
		alerts = append(alerts, notify.NewDiscord(secrets.DiscordWebhookURL))
	}

	reasoner := reasoning.NewClient(secrets.ReasoningAPIKey)
	valuer := valuation.NewValuationEngine(reasoner, ledger, cfg.Valuation.Model)
	calibration := valuation.NewCalibrationStore(ledger)

	aggregator := data.NewAggregator(
		data.NewCryptoSource(),
		data.NewNewsSource(),
		data.NewSportsSource(),
		data.NewWeatherSource(),
	)

	portfolio := risk.NewPortfolioManager(risk.PortfolioConfig{
		MaxTotalExposurePct:     cfg.Risk.MaxTotalExposurePct,
		MaxPositionsPerCategory: cfg.Risk.MaxPositionsPerCategory,
	})

	pl := pipeline.New(trader, aggregator, valuer, calibration, portfolio, ledger, alerts, pipeline.Config{
		MinEdgeThreshold:   cfg.Valuation.MinEdgeThreshold,
		HighConfidenceEdge: cfg.Valuation.HighConfidenceEdge,
		LowConfidenceEdge:  cfg.Valuation.LowConfidenceEdge,
		MaxSlippagePct:     cfg.Execution.MaxSlippagePct,
		Kelly: risk.KellyParams{
			KellyFraction:  cfg.Risk.KellyFraction,
			MaxPositionPct: cfg.Risk.MaxPositionPct,
			MinPositionUSD: cfg.Risk.MinPositionUsd,
		},
	})

	store := health.NewStore()
	healthSrv := health.NewServer(cfg.Monitoring.ListenAddr, store)

	sched := scheduler.New(scheduler.Config{
		CycleInterval:         cfg.CycleInterval(),
		DeathBalanceThreshold: cfg.Agent.DeathBalanceThreshold,
		LowFuelThreshold:      cfg.Agent.LowFuelThreshold,
		ApiReserve:            cfg.Agent.ApiReserve,
		MaxEvaluationsAlive:   cfg.Agent.MaxEvaluationsPerCycle,
		CostLookback:          10,
		DryRun:                *once,
	}, trader, pl, ledger, alerts, portfolio, store)

	resolver := resolution.NewEngine(trader, ledger, calibration, portfolio, alerts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil {
			slog.Error("health server failed", "err", err)
		}
	}()

	go runResolutionSweeps(ctx, resolver)

	if err := sched.Run(ctx); err != nil {
		slog.Error("scheduler exited with error", "err", err)
		_ = healthSrv.Shutdown(context.Background())
		os.Exit(1)
	}

	_ = healthSrv.Shutdown(context.Background())
	slog.Info("polyagent stopped cleanly")
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// newMarketClient selects the execution backend for the configured mode.
// Backtest reuses the paper engine against historical-feeling config
// defaults; only Live touches the on-chain signing seam, which remains
// unimplemented (polymarket.ErrLiveTradingNotImplemented) until a wallet
// integration is wired in.
func newMarketClient(cfg *config.Config, market *polymarket.Client, secrets config.Secrets) ports.MarketClient {
	switch cfg.Agent.Mode {
	case config.ModeLive:
		return polymarket.NewLiveMarketClient(market, nil, common.Address{})
	default:
		return polymarket.NewPaperClient(market, cfg.Agent.InitialPaperBalance)
	}
}

// runResolutionSweeps polls for resolved markets on a fixed interval,
// independent of the main cycle's adaptive pacing, until ctx is cancelled.
func runResolutionSweeps(ctx context.Context, engine *resolution.Engine) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := engine.Sweep(ctx); err != nil {
				slog.Warn("resolution sweep failed", "err", err)
			}
		}
	}
}
