package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the exchange
// workers. All methods are safe on a nil receiver so wiring stays optional.
type Metrics struct {
	ticks              uint64
	instrumentFailures uint64
	tradesSettled      uint64
	settleFailures     uint64
	ordersPlaced       uint64
	ordersRejected     uint64
	priceUpdates       uint64
	eventDrops         uint64

	tickLatency   LatencyStats
	settleLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Ticks              uint64
	InstrumentFailures uint64
	TradesSettled      uint64
	SettleFailures     uint64
	OrdersPlaced       uint64
	OrdersRejected     uint64
	PriceUpdates       uint64
	EventDrops         uint64
	TickLatency        LatencySnapshot
	SettleLatency      LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTick records one completed matching tick and its duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
	m.tickLatency.Observe(d)
}

// IncInstrumentFailure records one instrument pass aborted mid-tick.
func (m *Metrics) IncInstrumentFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.instrumentFailures, 1)
}

// ObserveSettlement records one committed settlement and its duration.
func (m *Metrics) ObserveSettlement(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.tradesSettled, 1)
	m.settleLatency.Observe(d)
}

// IncSettleFailure records a settlement that rolled back.
func (m *Metrics) IncSettleFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.settleFailures, 1)
}

// IncOrderPlaced records an accepted order.
func (m *Metrics) IncOrderPlaced() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersPlaced, 1)
}

// IncOrderRejected records an order refused at intake.
func (m *Metrics) IncOrderRejected() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersRejected, 1)
}

// IncPriceUpdate records one price feed mutation.
func (m *Metrics) IncPriceUpdate() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.priceUpdates, 1)
}

// IncEventDrop records a trade event dropped by a full queue.
func (m *Metrics) IncEventDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.eventDrops, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Ticks:              atomic.LoadUint64(&m.ticks),
		InstrumentFailures: atomic.LoadUint64(&m.instrumentFailures),
		TradesSettled:      atomic.LoadUint64(&m.tradesSettled),
		SettleFailures:     atomic.LoadUint64(&m.settleFailures),
		OrdersPlaced:       atomic.LoadUint64(&m.ordersPlaced),
		OrdersRejected:     atomic.LoadUint64(&m.ordersRejected),
		PriceUpdates:       atomic.LoadUint64(&m.priceUpdates),
		EventDrops:         atomic.LoadUint64(&m.eventDrops),
		TickLatency:        m.tickLatency.Snapshot(),
		SettleLatency:      m.settleLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
