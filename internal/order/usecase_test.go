package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/store"
	"main/pkg/exception"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T) (*Usecase, model.User, model.Instrument, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	user := model.User{Username: "alice", Balance: d("1000.00")}
	require.NoError(t, mem.CreateUser(ctx, &user))
	asset := model.Instrument{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: d("175.00")}
	require.NoError(t, mem.CreateInstrument(ctx, &asset))

	return NewUsecase(mem, nil), user, asset, mem
}

func TestPlaceBuyOrder(t *testing.T) {
	ctx := context.Background()
	use, user, asset, mem := setup(t)

	order, err := use.PlaceOrder(ctx, user.ID, "aapl ", enum.SideBuy, 5, d("100.00"))
	require.NoError(t, err)
	assert.Equal(t, asset.ID, order.InstrumentID, "symbol is trimmed and uppercased")
	assert.Equal(t, enum.OrderStatusPending, order.Status)
	assert.Equal(t, int64(5), order.Quantity)
	assert.Equal(t, int64(5), order.InitialQuantity)

	// Placement reserves nothing.
	stored, _, err := mem.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(d("1000.00")))
}

func TestPlaceSellOrder(t *testing.T) {
	ctx := context.Background()
	use, user, asset, mem := setup(t)
	require.NoError(t, mem.UpsertHolding(ctx, model.Holding{
		UserID: user.ID, InstrumentID: asset.ID, Quantity: 10,
	}))

	order, err := use.PlaceOrder(ctx, user.ID, "AAPL", enum.SideSell, 10, d("200.00"))
	require.NoError(t, err)
	assert.Equal(t, enum.SideSell, order.Side)

	// The holding is untouched until settlement.
	holding, _, err := mem.GetHolding(ctx, user.ID, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), holding.Quantity)
}

func TestPlaceOrderRejections(t *testing.T) {
	ctx := context.Background()
	use, user, asset, mem := setup(t)
	require.NoError(t, mem.UpsertHolding(ctx, model.Holding{
		UserID: user.ID, InstrumentID: asset.ID, Quantity: 3,
	}))

	testCases := []struct {
		desc     string
		userID   uint
		symbol   string
		side     enum.Side
		quantity int64
		price    decimal.Decimal
		want     error
	}{
		{"zero quantity", user.ID, "AAPL", enum.SideBuy, 0, d("10.00"), exception.ErrNonPositiveQuantity},
		{"negative quantity", user.ID, "AAPL", enum.SideBuy, -3, d("10.00"), exception.ErrNonPositiveQuantity},
		{"zero price", user.ID, "AAPL", enum.SideBuy, 1, decimal.Zero, exception.ErrNonPositivePrice},
		{"negative price", user.ID, "AAPL", enum.SideBuy, 1, d("-10.00"), exception.ErrNonPositivePrice},
		{"blank symbol", user.ID, "   ", enum.SideBuy, 1, d("10.00"), exception.ErrEmptySymbol},
		{"unknown side", user.ID, "AAPL", enum.Side(99), 1, d("10.00"), exception.ErrValidation},
		{"unknown user", 999, "AAPL", enum.SideBuy, 1, d("10.00"), exception.ErrUnknownUser},
		{"unknown symbol", user.ID, "TSLA", enum.SideBuy, 1, d("10.00"), exception.ErrUnknownInstrument},
		{"unaffordable buy", user.ID, "AAPL", enum.SideBuy, 11, d("100.00"), exception.ErrInsufficientBalance},
		{"uncovered sell", user.ID, "AAPL", enum.SideSell, 4, d("100.00"), exception.ErrInsufficientHolding},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := use.PlaceOrder(ctx, tc.userID, tc.symbol, tc.side, tc.quantity, tc.price)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "want %v, got %+v", tc.want, err)
			assert.True(t, errors.Is(err, exception.ErrValidation), "rejections are validation errors")
		})
	}

	orders, err := mem.FindOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders, "rejected orders are not recorded")
}

func TestPlaceBuyOrderAtExactBalance(t *testing.T) {
	ctx := context.Background()
	use, user, _, _ := setup(t)

	_, err := use.PlaceOrder(ctx, user.ID, "AAPL", enum.SideBuy, 10, d("100.00"))
	require.NoError(t, err, "cost equal to balance is affordable")
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	use, user, _, _ := setup(t)

	first, err := use.PlaceOrder(ctx, user.ID, "AAPL", enum.SideBuy, 1, d("10.00"))
	require.NoError(t, err)
	second, err := use.PlaceOrder(ctx, user.ID, "AAPL", enum.SideBuy, 2, d("10.00"))
	require.NoError(t, err)

	orders, err := use.History(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID, "newest first")
	assert.Equal(t, first.ID, orders[1].ID)

	_, err = use.History(ctx, 999)
	assert.True(t, errors.Is(err, exception.ErrUnknownUser))
}
