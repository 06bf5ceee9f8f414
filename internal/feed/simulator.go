/*
Package feed mutates instrument display prices on a random walk, standing in
for a live market data source.

The feed runs on its own fixed-interval worker and never blocks, or is
blocked by, the matching engine. Matching uses order limit prices only; the
displayed price exists for reporting and valuation.
*/
package feed

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/obs"
	"main/internal/store"
)

// Prices never walk below one cent.
var minPrice = decimal.RequireFromString("0.01")

// Config tunes the simulator.
type Config struct {
	Interval       time.Duration
	MaxMovePercent float64
	Seed           int64
	Metrics        *obs.Metrics
}

// Simulator is the price feed worker.
type Simulator struct {
	store   store.Store
	metrics *obs.Metrics

	interval   time.Duration
	maxMovePct float64
	rng        *rand.Rand
	running    atomic.Bool
}

// NewSimulator creates a price feed over the given store. A zero seed means
// a time-based one.
func NewSimulator(s store.Store, cfg Config) *Simulator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxMovePct := cfg.MaxMovePercent
	if maxMovePct <= 0 {
		maxMovePct = 0.02
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		store:      s,
		metrics:    cfg.Metrics,
		interval:   interval,
		maxMovePct: maxMovePct,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Run updates prices at the configured interval until the context is
// cancelled or the process shuts down.
func (s *Simulator) Run(ctx context.Context) {
	if s.running.Swap(true) {
		return
	}
	defer s.running.Store(false)

	logs.Infof("price feed started, interval %s, max move %.2f%%", s.interval, s.maxMovePct*100)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logs.Info("price feed stopped")
			return
		case <-sys.Shutdown():
			logs.Info("price feed stopped")
			return
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				logs.Errorf("price feed step, err: %+v", err)
			}
		}
	}
}

// Step walks every instrument's price once. A failed update is logged and
// does not stop the pass.
func (s *Simulator) Step(ctx context.Context) error {
	instruments, err := s.store.ListInstruments(ctx)
	if err != nil {
		return errors.Wrap(err, "list instruments")
	}

	for _, instrument := range instruments {
		next := s.nextPrice(instrument.CurrentPrice)
		if err := s.store.UpdateInstrumentPrice(ctx, instrument.ID, next); err != nil {
			logs.Errorf("update price for %s, err: %+v", instrument.Symbol, err)
			continue
		}
		s.metrics.IncPriceUpdate()
	}
	return nil
}

func (s *Simulator) nextPrice(current decimal.Decimal) decimal.Decimal {
	move := s.rng.Float64() * s.maxMovePct
	if s.rng.Intn(2) == 0 {
		move = -move
	}

	next := current.Add(current.Mul(decimal.NewFromFloat(move))).Round(2)
	if next.LessThan(minPrice) {
		return minPrice
	}
	return next
}
