// Package order is the intake path: it validates and records new limit
// orders as PENDING. It never touches matching or settlement.
package order

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/store"
	"main/pkg/exception"
)

// Usecase validates and persists incoming orders.
type Usecase struct {
	store   store.Store
	metrics *obs.Metrics
}

// NewUsecase creates the intake usecase.
func NewUsecase(s store.Store, metrics *obs.Metrics) *Usecase {
	return &Usecase{store: s, metrics: metrics}
}

// PlaceOrder records a PENDING limit order after validating it.
//
// Buy orders must be affordable at the instant of placement; the balance is
// not reserved and not re-checked at match time. Sell orders must be covered
// by the user's current holding, which keeps an insufficient holding at
// settlement time a defect signal rather than a normal outcome.
func (use *Usecase) PlaceOrder(ctx context.Context, userID uint, symbol string, side enum.Side, quantity int64, limitPrice decimal.Decimal) (model.Order, error) {
	order, err := use.placeOrder(ctx, userID, symbol, side, quantity, limitPrice)
	if err != nil {
		use.metrics.IncOrderRejected()
		return model.Order{}, err
	}
	use.metrics.IncOrderPlaced()
	return order, nil
}

func (use *Usecase) placeOrder(ctx context.Context, userID uint, symbol string, side enum.Side, quantity int64, limitPrice decimal.Decimal) (model.Order, error) {
	if quantity <= 0 {
		return model.Order{}, exception.ErrNonPositiveQuantity
	}
	if !limitPrice.IsPositive() {
		return model.Order{}, exception.ErrNonPositivePrice
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Order{}, exception.ErrEmptySymbol
	}
	if !side.IsAvailable() {
		return model.Order{}, errors.Wrapf(exception.ErrValidation, "unknown side %d", side)
	}

	user, ok, err := use.store.GetUser(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, errors.Wrapf(exception.ErrUnknownUser, "user %d", userID)
	}

	instrument, ok, err := use.store.GetInstrumentBySymbol(ctx, symbol)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, errors.Wrapf(exception.ErrUnknownInstrument, "symbol %s", symbol)
	}

	switch side {
	case enum.SideBuy:
		cost := limitPrice.Mul(decimal.NewFromInt(quantity))
		if user.Balance.LessThan(cost) {
			return model.Order{}, errors.Wrapf(exception.ErrInsufficientBalance,
				"required %s, available %s", cost, user.Balance)
		}
	case enum.SideSell:
		holding, ok, err := use.store.GetHolding(ctx, userID, instrument.ID)
		if err != nil {
			return model.Order{}, err
		}
		held := int64(0)
		if ok {
			held = holding.Quantity
		}
		if held < quantity {
			return model.Order{}, errors.Wrapf(exception.ErrInsufficientHolding,
				"required %d, held %d", quantity, held)
		}
	}

	order := model.Order{
		UserID:          userID,
		InstrumentID:    instrument.ID,
		Side:            side,
		Price:           limitPrice,
		Quantity:        quantity,
		InitialQuantity: quantity,
		Status:          enum.OrderStatusPending,
	}
	if err := use.store.CreateOrder(ctx, &order); err != nil {
		return model.Order{}, err
	}

	logs.Infof("%s order placed: %d %s at %s for user %d",
		side, order.Quantity, instrument.Symbol, order.Price, order.UserID)
	return order, nil
}

// Get looks an order up by id.
func (use *Usecase) Get(ctx context.Context, orderID uint) (model.Order, bool, error) {
	return use.store.GetOrder(ctx, orderID)
}

// History returns the user's orders, newest first.
func (use *Usecase) History(ctx context.Context, userID uint) ([]model.Order, error) {
	if _, ok, err := use.store.GetUser(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.Wrapf(exception.ErrUnknownUser, "user %d", userID)
	}
	return use.store.FindOrdersByUser(ctx, userID)
}
