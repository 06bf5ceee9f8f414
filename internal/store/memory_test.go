package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMemoryPendingOrderPriority(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	asset := model.Instrument{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: d("175.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &asset))

	base := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	place := func(side enum.Side, price string, offset time.Duration, status enum.OrderStatus) model.Order {
		order := model.Order{
			UserID:          1,
			InstrumentID:    asset.ID,
			Side:            side,
			Price:           d(price),
			Quantity:        10,
			InitialQuantity: 10,
			Status:          status,
			CreatedAt:       base.Add(offset),
		}
		require.NoError(t, mem.CreateOrder(ctx, &order))
		return order
	}

	lateHigh := place(enum.SideBuy, "10.50", 2*time.Second, enum.OrderStatusPending)
	earlyHigh := place(enum.SideBuy, "10.50", time.Second, enum.OrderStatusPartialFill)
	low := place(enum.SideBuy, "10.00", 0, enum.OrderStatusPending)
	place(enum.SideBuy, "99.00", 0, enum.OrderStatusExecuted)  // filled, excluded
	place(enum.SideBuy, "99.00", 0, enum.OrderStatusCancelled) // cancelled, excluded
	place(enum.SideSell, "10.00", 0, enum.OrderStatusPending)  // wrong side

	buys, err := mem.FindPendingOrders(ctx, asset.ID, enum.SideBuy)
	require.NoError(t, err)
	require.Len(t, buys, 3)
	assert.Equal(t, earlyHigh.ID, buys[0].ID, "price first, then time")
	assert.Equal(t, lateHigh.ID, buys[1].ID)
	assert.Equal(t, low.ID, buys[2].ID)

	sells, err := mem.FindPendingOrders(ctx, asset.ID, enum.SideSell)
	require.NoError(t, err)
	require.Len(t, sells, 1)
}

func TestMemorySellOrderPriceAscending(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	asset := model.Instrument{Symbol: "MSFT", CompanyName: "Microsoft Corp.", CurrentPrice: d("400.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &asset))

	for _, price := range []string{"10.50", "10.00", "10.25"} {
		order := model.Order{
			UserID: 1, InstrumentID: asset.ID, Side: enum.SideSell,
			Price: d(price), Quantity: 5, InitialQuantity: 5, Status: enum.OrderStatusPending,
		}
		require.NoError(t, mem.CreateOrder(ctx, &order))
	}

	sells, err := mem.FindPendingOrders(ctx, asset.ID, enum.SideSell)
	require.NoError(t, err)
	require.Len(t, sells, 3)
	assert.True(t, sells[0].Price.Equal(d("10.00")))
	assert.True(t, sells[1].Price.Equal(d("10.25")))
	assert.True(t, sells[2].Price.Equal(d("10.50")))
}

func TestMemoryWithinTxCommit(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	user := model.User{Username: "alice", Balance: d("100.00")}
	require.NoError(t, mem.CreateUser(ctx, &user))

	err := mem.WithinTx(ctx, func(tx Store) error {
		return tx.UpdateBalance(ctx, user.ID, d("40.00"))
	})
	require.NoError(t, err)

	stored, ok, err := mem.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Balance.Equal(d("40.00")))
}

func TestMemoryWithinTxRollback(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	user := model.User{Username: "alice", Balance: d("100.00")}
	require.NoError(t, mem.CreateUser(ctx, &user))
	asset := model.Instrument{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: d("175.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &asset))

	boom := errors.New("boom")
	err := mem.WithinTx(ctx, func(tx Store) error {
		if err := tx.UpdateBalance(ctx, user.ID, d("0.00")); err != nil {
			return err
		}
		if err := tx.UpsertHolding(ctx, model.Holding{UserID: user.ID, InstrumentID: asset.ID, Quantity: 5}); err != nil {
			return err
		}
		order := model.Order{UserID: user.ID, InstrumentID: asset.ID, Side: enum.SideBuy,
			Price: d("1.00"), Quantity: 1, InitialQuantity: 1, Status: enum.OrderStatusPending}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, _, err := mem.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(d("100.00")), "balance rolled back")

	_, ok, err := mem.GetHolding(ctx, user.ID, asset.ID)
	require.NoError(t, err)
	assert.False(t, ok, "holding rolled back")

	orders, err := mem.FindOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders, "order rolled back")
}

func TestMemoryWithinTxNested(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	user := model.User{Username: "alice", Balance: d("100.00")}
	require.NoError(t, mem.CreateUser(ctx, &user))

	err := mem.WithinTx(ctx, func(tx Store) error {
		return tx.WithinTx(ctx, func(inner Store) error {
			return inner.UpdateBalance(ctx, user.ID, d("70.00"))
		})
	})
	require.NoError(t, err)

	stored, _, err := mem.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(d("70.00")))
}

func TestMemoryOptionalLookups(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	_, ok, err := mem.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = mem.GetUserByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = mem.GetInstrumentBySymbol(ctx, "NONE")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = mem.GetOrder(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = mem.GetHolding(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	first := model.User{Username: "alice", Balance: d("1.00")}
	require.NoError(t, mem.CreateUser(ctx, &first))
	dup := model.User{Username: "alice", Balance: d("1.00")}
	assert.Error(t, mem.CreateUser(ctx, &dup))

	asset := model.Instrument{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: d("1.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &asset))
	dupAsset := model.Instrument{Symbol: "AAPL", CompanyName: "Other", CurrentPrice: d("2.00")}
	assert.Error(t, mem.CreateInstrument(ctx, &dupAsset))
}

func TestMemoryHoldingLifecycle(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	require.NoError(t, mem.UpsertHolding(ctx, model.Holding{UserID: 1, InstrumentID: 2, Quantity: 10}))
	require.NoError(t, mem.UpsertHolding(ctx, model.Holding{UserID: 1, InstrumentID: 3, Quantity: 4}))
	require.NoError(t, mem.UpsertHolding(ctx, model.Holding{UserID: 1, InstrumentID: 2, Quantity: 25}))

	holding, ok, err := mem.GetHolding(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(25), holding.Quantity, "upsert replaces quantity")

	holdings, err := mem.FindHoldingsByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, uint(2), holdings[0].InstrumentID)

	require.NoError(t, mem.DeleteHolding(ctx, 1, 2))
	_, ok, err = mem.GetHolding(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}
