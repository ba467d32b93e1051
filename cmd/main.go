// Command binance-endpoints runs the market analysis HTTP service. It
// fetches market data from Binance or Bybit and serves four analyses
// (market statistics, technical, correlation, liquidity) in five output
// formats (json, csv, html, xml, chart).
//
// Usage:
//
//	binance-endpoints --config config.yaml
//	binance-endpoints --platform binance --addr :8000
//
// Optional environment variables (public market data works without keys):
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"go.uber.org/zap"

	"github.com/jrysztv/binance-endpoints/config"
	"github.com/jrysztv/binance-endpoints/internal/render"
	"github.com/jrysztv/binance-endpoints/internal/services/analysis"
	"github.com/jrysztv/binance-endpoints/internal/services/market/collector"
	"github.com/jrysztv/binance-endpoints/internal/web"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var source collector.Source
	switch cfg.Platform {
	case "binance":
		client := binance.NewClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
		source = collector.NewBinanceSource(client)
	case "bybit":
		client := bybit.NewClient().WithAuth(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
		source = collector.NewBybitSource(client)
	default:
		log.Fatalf("unsupported platform: %s", cfg.Platform)
	}
	source = collector.WithTimeout(source, cfg.RequestTimeout)

	if len(cfg.Symbols) > 0 {
		analysis.DefaultSymbols = cfg.Symbols
	}

	analyzer := analysis.New(source, logger)
	server := web.NewServer(cfg.Addr, analyzer, render.NewEngine(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
