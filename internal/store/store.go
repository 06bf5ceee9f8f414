// Package store defines the ledger contract the engine settles against and
// provides the postgres and in-memory implementations.
//
// Every mutating call the settlement path needs can be scoped into one
// all-or-nothing unit of work through WithinTx. Lookups that can miss return
// an explicit found flag instead of a zero value with an implicit contract.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"main/internal/model"
	"main/internal/model/enum"
)

// Store is the durable record store for users, instruments, orders, trades
// and holdings. Implementations classify their own failures under
// exception.ErrStore.
type Store interface {
	// WithinTx runs fn against a transactional view of the store. Effects
	// become visible to other readers only after fn returns nil; any error
	// rolls every effect back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id uint) (model.User, bool, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, bool, error)
	UpdateBalance(ctx context.Context, userID uint, balance decimal.Decimal) error

	CreateInstrument(ctx context.Context, instrument *model.Instrument) error
	GetInstrument(ctx context.Context, id uint) (model.Instrument, bool, error)
	GetInstrumentBySymbol(ctx context.Context, symbol string) (model.Instrument, bool, error)
	ListInstruments(ctx context.Context) ([]model.Instrument, error)
	UpdateInstrumentPrice(ctx context.Context, id uint, price decimal.Decimal) error

	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id uint) (model.Order, bool, error)
	// FindPendingOrders returns open orders for one instrument in price-time
	// priority: buys best (highest) price first, sells best (lowest) price
	// first, earliest creation first among equal prices.
	FindPendingOrders(ctx context.Context, instrumentID uint, side enum.Side) ([]model.Order, error)
	FindOrdersByUser(ctx context.Context, userID uint) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id uint, status enum.OrderStatus, quantity int64) error

	CreateTrade(ctx context.Context, trade *model.Trade) error
	FindTradesByUser(ctx context.Context, userID uint) ([]model.Trade, error)
	FindTradesByInstrument(ctx context.Context, instrumentID uint) ([]model.Trade, error)

	GetHolding(ctx context.Context, userID, instrumentID uint) (model.Holding, bool, error)
	UpsertHolding(ctx context.Context, holding model.Holding) error
	DeleteHolding(ctx context.Context, userID, instrumentID uint) error
	FindHoldingsByUser(ctx context.Context, userID uint) ([]model.Holding, error)
}
