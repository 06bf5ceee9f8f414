package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/store"
	"main/pkg/exception"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHoldingsValuation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	user := model.User{Username: "alice", Balance: d("0.00")}
	require.NoError(t, mem.CreateUser(ctx, &user))

	apple := model.Instrument{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: d("175.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &apple))
	microsoft := model.Instrument{Symbol: "MSFT", CompanyName: "Microsoft Corp.", CurrentPrice: d("400.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &microsoft))

	require.NoError(t, mem.UpsertHolding(ctx, model.Holding{UserID: user.ID, InstrumentID: apple.ID, Quantity: 10}))
	require.NoError(t, mem.UpsertHolding(ctx, model.Holding{UserID: user.ID, InstrumentID: microsoft.ID, Quantity: 2}))

	use := NewUsecase(mem)
	details, err := use.Holdings(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "AAPL", details[0].Symbol)
	assert.True(t, details[0].Value().Equal(d("1750.00")))
	assert.Equal(t, "MSFT", details[1].Symbol)
	assert.True(t, details[1].Value().Equal(d("800.00")))

	total, err := use.TotalValue(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("2550.00")), "total value: %s", total)
}

func TestHoldingsEmptyPortfolio(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	user := model.User{Username: "alice", Balance: d("0.00")}
	require.NoError(t, mem.CreateUser(ctx, &user))

	use := NewUsecase(mem)
	details, err := use.Holdings(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, details)

	total, err := use.TotalValue(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestHoldingsUnknownUser(t *testing.T) {
	ctx := context.Background()
	use := NewUsecase(store.NewMemory())

	_, err := use.Holdings(ctx, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUnknownUser))

	_, err = use.Trades(ctx, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUnknownUser))
}

func TestTradesNewestFirst(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	alice := model.User{Username: "alice", Balance: d("0.00")}
	require.NoError(t, mem.CreateUser(ctx, &alice))
	bob := model.User{Username: "bob", Balance: d("0.00")}
	require.NoError(t, mem.CreateUser(ctx, &bob))
	asset := model.Instrument{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: d("175.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &asset))

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	older := model.Trade{BuyerID: alice.ID, SellerID: bob.ID, InstrumentID: asset.ID,
		Price: d("10.00"), Quantity: 1, CreatedAt: base}
	require.NoError(t, mem.CreateTrade(ctx, &older))
	newer := model.Trade{BuyerID: bob.ID, SellerID: alice.ID, InstrumentID: asset.ID,
		Price: d("11.00"), Quantity: 2, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, mem.CreateTrade(ctx, &newer))

	use := NewUsecase(mem)
	trades, err := use.Trades(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, trades, 2, "both sides of a trade appear in the user's history")
	assert.Equal(t, newer.ID, trades[0].ID)
	assert.Equal(t, older.ID, trades[1].ID)

	instrumentTrades, err := use.InstrumentTrades(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, instrumentTrades, 2)
}
