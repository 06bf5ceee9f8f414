package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/account"
	"main/internal/bus"
	"main/internal/feed"
	"main/internal/market"
	"main/internal/match"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/settle"
	"main/internal/store"
)

const metricsReportInterval = time.Minute

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	useMemory := flag.Bool("mem", false, "Run on the in-memory store instead of postgres")
	seedDemo := flag.Bool("seed", false, "Seed demo instruments and users")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "exchange",
			ServerAddress:   loaded.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ledger, closeLedger, err := openLedger(*useMemory, loaded)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer closeLedger()

	if *seedDemo {
		if err := seed(ctx, ledger); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	metrics := obs.NewMetrics()
	events := bus.NewQueue(1024)
	settler := settle.NewExecutor(ledger)
	engine := match.NewEngine(ledger, settler, match.Config{
		Interval: loaded.MatchInterval,
		Events:   events,
		Metrics:  metrics,
	})
	simulator := feed.NewSimulator(ledger, feed.Config{
		Interval:       loaded.PriceFeedInterval,
		MaxMovePercent: loaded.MaxPriceMovePercent,
		Metrics:        metrics,
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		events.Run(ctx, func(e bus.TradeEvent) {
			logs.Infof("trade: %d %s at %s (buyer %d, seller %d)",
				e.Trade.Quantity, e.Symbol, e.Trade.Price, e.Trade.BuyerID, e.Trade.SellerID)
		})
	}()
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		simulator.Run(ctx)
	}()

	go reportMetrics(ctx, metrics)

	<-ctx.Done()
	events.Close()
	wg.Wait()

	snapshot := metrics.Snapshot()
	logs.Infof("shutdown: %d ticks, %d trades settled, %d settlement failures, %d price updates",
		snapshot.Ticks, snapshot.TradesSettled, snapshot.SettleFailures, snapshot.PriceUpdates)
}

func openLedger(useMemory bool, loaded ops.Loaded) (store.Store, func(), error) {
	if useMemory {
		return store.NewMemory(), func() {}, nil
	}

	pg, err := store.OpenPostgres(loaded.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			logs.Errorf("close store, err: %+v", err)
		}
	}, nil
}

func reportMetrics(ctx context.Context, metrics *obs.Metrics) {
	ticker := time.NewTicker(metricsReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := metrics.Snapshot()
			logs.Infof("metrics: ticks %d (avg %s), trades %d, settle failures %d, orders %d placed / %d rejected, price updates %d, event drops %d",
				snapshot.Ticks, snapshot.TickLatency.Avg, snapshot.TradesSettled, snapshot.SettleFailures,
				snapshot.OrdersPlaced, snapshot.OrdersRejected, snapshot.PriceUpdates, snapshot.EventDrops)
		}
	}
}

// seed creates the demo market: four instruments, two funded users and a
// starting inventory for the seller so matches can happen right away.
func seed(ctx context.Context, ledger store.Store) error {
	markets := market.NewUsecase(ledger)
	accounts := account.NewUsecase(ledger)

	instruments := []model.Instrument{
		{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: decimal.RequireFromString("175.00")},
		{Symbol: "GOOGL", CompanyName: "Alphabet Inc.", CurrentPrice: decimal.RequireFromString("1500.00")},
		{Symbol: "MSFT", CompanyName: "Microsoft Corp.", CurrentPrice: decimal.RequireFromString("400.00")},
		{Symbol: "AMZN", CompanyName: "Amazon.com Inc.", CurrentPrice: decimal.RequireFromString("180.00")},
	}

	var listed []model.Instrument
	for _, entry := range instruments {
		instrument, err := markets.Add(ctx, entry.Symbol, entry.CompanyName, entry.CurrentPrice)
		if err != nil {
			return err
		}
		listed = append(listed, instrument)
	}

	initialBalance := decimal.RequireFromString("10000.00")
	if _, err := accounts.Register(ctx, "alice", initialBalance); err != nil {
		return err
	}
	seller, err := accounts.Register(ctx, "bob", initialBalance)
	if err != nil {
		return err
	}

	for _, instrument := range listed {
		err := ledger.UpsertHolding(ctx, model.Holding{
			UserID:       seller.ID,
			InstrumentID: instrument.ID,
			Quantity:     100,
		})
		if err != nil {
			return err
		}
	}

	logs.Info("demo data seeded")
	return nil
}
