package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// Memory is an in-memory Store used by tests and -mem runs. WithinTx clones
// the whole dataset, runs the unit of work against the clone and swaps it in
// on success, so rollback and commit visibility behave like the durable
// store.
type Memory struct {
	mu     sync.RWMutex
	data   *dataset
	parent *Memory
}

var _ Store = (*Memory)(nil)

type holdingKey struct {
	userID       uint
	instrumentID uint
}

type dataset struct {
	users       map[uint]model.User
	instruments map[uint]model.Instrument
	orders      map[uint]model.Order
	trades      map[uint]model.Trade
	holdings    map[holdingKey]model.Holding

	nextUserID       uint
	nextInstrumentID uint
	nextOrderID      uint
	nextTradeID      uint
}

// NewMemory allocates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: newDataset()}
}

func newDataset() *dataset {
	return &dataset{
		users:       make(map[uint]model.User),
		instruments: make(map[uint]model.Instrument),
		orders:      make(map[uint]model.Order),
		trades:      make(map[uint]model.Trade),
		holdings:    make(map[holdingKey]model.Holding),
	}
}

func (d *dataset) clone() *dataset {
	clone := &dataset{
		users:            make(map[uint]model.User, len(d.users)),
		instruments:      make(map[uint]model.Instrument, len(d.instruments)),
		orders:           make(map[uint]model.Order, len(d.orders)),
		trades:           make(map[uint]model.Trade, len(d.trades)),
		holdings:         make(map[holdingKey]model.Holding, len(d.holdings)),
		nextUserID:       d.nextUserID,
		nextInstrumentID: d.nextInstrumentID,
		nextOrderID:      d.nextOrderID,
		nextTradeID:      d.nextTradeID,
	}
	for id, user := range d.users {
		clone.users[id] = user
	}
	for id, instrument := range d.instruments {
		clone.instruments[id] = instrument
	}
	for id, order := range d.orders {
		clone.orders[id] = order
	}
	for id, trade := range d.trades {
		clone.trades[id] = trade
	}
	for key, holding := range d.holdings {
		clone.holdings[key] = holding
	}
	return clone
}

func (m *Memory) lock() func() {
	if m.parent != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) rlock() func() {
	if m.parent != nil {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *Memory) WithinTx(_ context.Context, fn func(tx Store) error) error {
	// Already inside a transaction: the caller's unit of work covers us.
	if m.parent != nil {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	tx := &Memory{data: snapshot, parent: m}
	if err := fn(tx); err != nil {
		return err
	}
	m.data = snapshot
	return nil
}

func (m *Memory) CreateUser(_ context.Context, user *model.User) error {
	defer m.lock()()

	for _, existing := range m.data.users {
		if existing.Username == user.Username {
			return errors.Wrapf(exception.ErrStore, "create user: username %q taken", user.Username)
		}
	}
	m.data.nextUserID++
	user.ID = m.data.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.data.users[user.ID] = *user
	return nil
}

func (m *Memory) GetUser(_ context.Context, id uint) (model.User, bool, error) {
	defer m.rlock()()

	user, ok := m.data.users[id]
	return user, ok, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (model.User, bool, error) {
	defer m.rlock()()

	for _, user := range m.data.users {
		if user.Username == username {
			return user, true, nil
		}
	}
	return model.User{}, false, nil
}

func (m *Memory) UpdateBalance(_ context.Context, userID uint, balance decimal.Decimal) error {
	defer m.lock()()

	user, ok := m.data.users[userID]
	if !ok {
		return errors.Wrapf(exception.ErrStore, "update balance: user %d not found", userID)
	}
	user.Balance = balance
	m.data.users[userID] = user
	return nil
}

func (m *Memory) CreateInstrument(_ context.Context, instrument *model.Instrument) error {
	defer m.lock()()

	for _, existing := range m.data.instruments {
		if existing.Symbol == instrument.Symbol {
			return errors.Wrapf(exception.ErrStore, "create instrument: symbol %q taken", instrument.Symbol)
		}
	}
	m.data.nextInstrumentID++
	instrument.ID = m.data.nextInstrumentID
	m.data.instruments[instrument.ID] = *instrument
	return nil
}

func (m *Memory) GetInstrument(_ context.Context, id uint) (model.Instrument, bool, error) {
	defer m.rlock()()

	instrument, ok := m.data.instruments[id]
	return instrument, ok, nil
}

func (m *Memory) GetInstrumentBySymbol(_ context.Context, symbol string) (model.Instrument, bool, error) {
	defer m.rlock()()

	for _, instrument := range m.data.instruments {
		if instrument.Symbol == symbol {
			return instrument, true, nil
		}
	}
	return model.Instrument{}, false, nil
}

func (m *Memory) ListInstruments(_ context.Context) ([]model.Instrument, error) {
	defer m.rlock()()

	instruments := make([]model.Instrument, 0, len(m.data.instruments))
	for _, instrument := range m.data.instruments {
		instruments = append(instruments, instrument)
	}
	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i].ID < instruments[j].ID
	})
	return instruments, nil
}

func (m *Memory) UpdateInstrumentPrice(_ context.Context, id uint, price decimal.Decimal) error {
	defer m.lock()()

	instrument, ok := m.data.instruments[id]
	if !ok {
		return errors.Wrapf(exception.ErrStore, "update instrument price: instrument %d not found", id)
	}
	instrument.CurrentPrice = price
	m.data.instruments[id] = instrument
	return nil
}

func (m *Memory) CreateOrder(_ context.Context, order *model.Order) error {
	defer m.lock()()

	m.data.nextOrderID++
	order.ID = m.data.nextOrderID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	m.data.orders[order.ID] = *order
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id uint) (model.Order, bool, error) {
	defer m.rlock()()

	order, ok := m.data.orders[id]
	return order, ok, nil
}

func (m *Memory) FindPendingOrders(_ context.Context, instrumentID uint, side enum.Side) ([]model.Order, error) {
	defer m.rlock()()

	var orders []model.Order
	for _, order := range m.data.orders {
		if order.InstrumentID == instrumentID && order.Side == side && order.Open() {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		cmp := orders[i].Price.Cmp(orders[j].Price)
		if cmp != 0 {
			if side == enum.SideBuy {
				return cmp > 0
			}
			return cmp < 0
		}
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders, nil
}

func (m *Memory) FindOrdersByUser(_ context.Context, userID uint) ([]model.Order, error) {
	defer m.rlock()()

	var orders []model.Order
	for _, order := range m.data.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

func (m *Memory) UpdateOrder(_ context.Context, id uint, status enum.OrderStatus, quantity int64) error {
	defer m.lock()()

	order, ok := m.data.orders[id]
	if !ok {
		return errors.Wrapf(exception.ErrStore, "update order: order %d not found", id)
	}
	order.Status = status
	order.Quantity = quantity
	order.UpdatedAt = time.Now()
	m.data.orders[id] = order
	return nil
}

func (m *Memory) CreateTrade(_ context.Context, trade *model.Trade) error {
	defer m.lock()()

	m.data.nextTradeID++
	trade.ID = m.data.nextTradeID
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now()
	}
	m.data.trades[trade.ID] = *trade
	return nil
}

func (m *Memory) FindTradesByUser(_ context.Context, userID uint) ([]model.Trade, error) {
	defer m.rlock()()

	var trades []model.Trade
	for _, trade := range m.data.trades {
		if trade.BuyerID == userID || trade.SellerID == userID {
			trades = append(trades, trade)
		}
	}
	sortTradesNewestFirst(trades)
	return trades, nil
}

func (m *Memory) FindTradesByInstrument(_ context.Context, instrumentID uint) ([]model.Trade, error) {
	defer m.rlock()()

	var trades []model.Trade
	for _, trade := range m.data.trades {
		if trade.InstrumentID == instrumentID {
			trades = append(trades, trade)
		}
	}
	sortTradesNewestFirst(trades)
	return trades, nil
}

func sortTradesNewestFirst(trades []model.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].CreatedAt.Equal(trades[j].CreatedAt) {
			return trades[i].CreatedAt.After(trades[j].CreatedAt)
		}
		return trades[i].ID > trades[j].ID
	})
}

func (m *Memory) GetHolding(_ context.Context, userID, instrumentID uint) (model.Holding, bool, error) {
	defer m.rlock()()

	holding, ok := m.data.holdings[holdingKey{userID, instrumentID}]
	return holding, ok, nil
}

func (m *Memory) UpsertHolding(_ context.Context, holding model.Holding) error {
	defer m.lock()()

	m.data.holdings[holdingKey{holding.UserID, holding.InstrumentID}] = holding
	return nil
}

func (m *Memory) DeleteHolding(_ context.Context, userID, instrumentID uint) error {
	defer m.lock()()

	delete(m.data.holdings, holdingKey{userID, instrumentID})
	return nil
}

func (m *Memory) FindHoldingsByUser(_ context.Context, userID uint) ([]model.Holding, error) {
	defer m.rlock()()

	var holdings []model.Holding
	for key, holding := range m.data.holdings {
		if key.userID == userID {
			holdings = append(holdings, holding)
		}
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].InstrumentID < holdings[j].InstrumentID
	})
	return holdings, nil
}
