/*
Package match runs the periodic order matching pass.

# Module
  - tick worker: one fixed-interval goroutine, ticks never overlap
  - per instrument: pending buys (price desc, time asc) against pending
    sells (price asc, time asc), walked with two cursors
  - execution price is the seller's limit, quantity the smaller remainder
  - settlement is delegated to the settle executor; a failed pairing is
    logged and skipped, it never aborts the rest of the tick

# Produce
  - trade events onto the in-memory bus after each committed settlement
*/
package match

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/settle"
	"main/internal/store"
	"main/pkg/exception"
)

// Config wires the engine's optional collaborators.
type Config struct {
	Interval time.Duration
	Events   *bus.Queue
	Metrics  *obs.Metrics
}

// Engine is the matching worker. It holds no cross-tick state of its own;
// every tick re-reads the pending set from the store.
type Engine struct {
	store   store.Store
	settler *settle.Executor
	events  *bus.Queue
	metrics *obs.Metrics

	interval time.Duration
	running  atomic.Bool
}

// NewEngine creates a matching engine over the given store.
func NewEngine(s store.Store, settler *settle.Executor, cfg Config) *Engine {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Engine{
		store:    s,
		settler:  settler,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		interval: interval,
	}
}

// Run ticks at the configured interval until the context is cancelled or the
// process shuts down. A second Run call on a running engine returns at once.
// The in-flight tick always completes; the settlement transaction boundary
// guarantees nothing half-committed survives an interrupt.
func (e *Engine) Run(ctx context.Context) {
	if e.running.Swap(true) {
		return
	}
	defer e.running.Store(false)

	logs.Infof("matching engine started, interval %s", e.interval)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logs.Info("matching engine stopped")
			return
		case <-sys.Shutdown():
			logs.Info("matching engine stopped")
			return
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				logs.Errorf("matching tick, err: %+v", err)
			}
		}
	}
}

// Tick runs one full matching pass across all instruments. A failure inside
// one instrument's pass is logged and does not touch the others; only a
// failure to enumerate instruments fails the tick itself.
func (e *Engine) Tick(ctx context.Context) error {
	start := time.Now()

	instruments, err := e.store.ListInstruments(ctx)
	if err != nil {
		return errors.Wrap(err, "list instruments")
	}

	for _, instrument := range instruments {
		if err := e.matchInstrument(ctx, instrument); err != nil {
			e.metrics.IncInstrumentFailure()
			logs.Errorf("match instrument %s, err: %+v", instrument.Symbol, err)
		}
	}

	e.metrics.ObserveTick(time.Since(start))
	return nil
}

func (e *Engine) matchInstrument(ctx context.Context, instrument model.Instrument) error {
	buys, err := e.store.FindPendingOrders(ctx, instrument.ID, enum.SideBuy)
	if err != nil {
		return errors.Wrap(err, "fetch pending buys")
	}
	sells, err := e.store.FindPendingOrders(ctx, instrument.ID, enum.SideSell)
	if err != nil {
		return errors.Wrap(err, "fetch pending sells")
	}

	buyIdx, sellIdx := 0, 0
	for buyIdx < len(buys) && sellIdx < len(sells) {
		buy, sell := &buys[buyIdx], &sells[sellIdx]

		// Both lists are in priority order, so the first non-crossing pair
		// ends the instrument for this tick.
		if buy.Price.LessThan(sell.Price) {
			break
		}

		price := sell.Price
		quantity := min(buy.Quantity, sell.Quantity)

		start := time.Now()
		trade, err := e.settler.Execute(ctx, buy, sell, price, quantity)
		if err != nil {
			e.metrics.IncSettleFailure()
			if !classified(err) {
				return errors.Wrapf(err, "settle buy %d against sell %d", buy.ID, sell.ID)
			}
			logs.Errorf("settle buy %d against sell %d on %s, err: %+v", buy.ID, sell.ID, instrument.Symbol, err)

			// Step past the side the failing fill would have exhausted so a
			// broken pairing cannot spin the tick. quantity is the smaller
			// remainder, so at least one cursor moves.
			if buy.Quantity == quantity {
				buyIdx++
			}
			if sell.Quantity == quantity {
				sellIdx++
			}
			continue
		}
		e.metrics.ObserveSettlement(time.Since(start))
		e.publish(instrument, trade)

		// Execute lowered the remaining quantities; an exhausted order yields
		// the cursor, a partially filled one stays to absorb the next
		// counter-order within this same tick.
		if buy.Quantity == 0 {
			buyIdx++
		}
		if sell.Quantity == 0 {
			sellIdx++
		}
	}
	return nil
}

func (e *Engine) publish(instrument model.Instrument, trade model.Trade) {
	if e.events == nil {
		return
	}
	if err := e.events.TryPublish(bus.TradeEvent{Trade: trade, Symbol: instrument.Symbol}); err != nil {
		e.metrics.IncEventDrop()
	}
}

// classified reports whether the settlement failure belongs to the known
// taxonomy. Known failures skip the pairing; anything else aborts the
// instrument's pass for this tick.
func classified(err error) bool {
	return errors.Is(err, exception.ErrValidation) ||
		errors.Is(err, exception.ErrConsistency) ||
		errors.Is(err, exception.ErrStore)
}
