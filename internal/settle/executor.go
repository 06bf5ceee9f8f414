/*
Package settle applies a matched buy/sell pairing to the ledger as one
indivisible unit of work.

A settlement debits the buyer, credits the seller, moves the holding,
rewrites both orders' status and remaining quantity and appends the trade
record. Either every effect commits or none does; partially-applied states
are never visible to concurrent readers.
*/
package settle

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/store"
	"main/pkg/exception"
)

// Executor runs settlement transactions against a ledger store.
type Executor struct {
	store store.Store
}

// NewExecutor creates a settlement executor.
func NewExecutor(s store.Store) *Executor {
	return &Executor{store: s}
}

// Execute settles quantity units between the crossing buy and sell orders at
// the given price. On success it returns the recorded trade and lowers the
// remaining quantity on both order structs so the caller's view matches the
// committed state. On any failure the store is left untouched.
//
// Buyer balance sufficiency is deliberately not re-checked here: the ledger
// checks affordability once, at order placement.
func (e *Executor) Execute(ctx context.Context, buy, sell *model.Order, price decimal.Decimal, quantity int64) (model.Trade, error) {
	if err := affirm(buy, sell, price, quantity); err != nil {
		return model.Trade{}, err
	}

	var trade model.Trade
	err := e.store.WithinTx(ctx, func(tx store.Store) error {
		notional := price.Mul(decimal.NewFromInt(quantity))

		if err := moveCash(ctx, tx, buy.UserID, sell.UserID, notional); err != nil {
			return err
		}
		if err := moveHolding(ctx, tx, buy.UserID, sell.UserID, buy.InstrumentID, quantity); err != nil {
			return err
		}
		if err := applyFill(ctx, tx, buy, quantity); err != nil {
			return err
		}
		if err := applyFill(ctx, tx, sell, quantity); err != nil {
			return err
		}

		trade = model.Trade{
			BuyerID:      buy.UserID,
			SellerID:     sell.UserID,
			InstrumentID: buy.InstrumentID,
			Price:        price,
			Quantity:     quantity,
		}
		return tx.CreateTrade(ctx, &trade)
	})
	if err != nil {
		return model.Trade{}, err
	}

	commitFill(buy, quantity)
	commitFill(sell, quantity)
	return trade, nil
}

func affirm(buy, sell *model.Order, price decimal.Decimal, quantity int64) error {
	if !price.IsPositive() {
		return exception.ErrNonPositivePrice
	}
	if quantity <= 0 {
		return exception.ErrNonPositiveQuantity
	}
	if quantity > buy.Quantity || quantity > sell.Quantity {
		return errors.Wrapf(exception.ErrQuantityExceedsOrder,
			"executed %d, buy remaining %d, sell remaining %d", quantity, buy.Quantity, sell.Quantity)
	}
	if buy.UserID == sell.UserID {
		return errors.Wrapf(exception.ErrSelfTrade, "user %d", buy.UserID)
	}
	if buy.InstrumentID != sell.InstrumentID {
		return errors.Wrapf(exception.ErrInstrumentMismatch,
			"buy instrument %d, sell instrument %d", buy.InstrumentID, sell.InstrumentID)
	}
	return nil
}

func moveCash(ctx context.Context, tx store.Store, buyerID, sellerID uint, notional decimal.Decimal) error {
	buyer, ok, err := tx.GetUser(ctx, buyerID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(exception.ErrConsistency, "buyer %d not found", buyerID)
	}
	if err := tx.UpdateBalance(ctx, buyerID, buyer.Balance.Sub(notional)); err != nil {
		return err
	}

	seller, ok, err := tx.GetUser(ctx, sellerID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(exception.ErrConsistency, "seller %d not found", sellerID)
	}
	return tx.UpdateBalance(ctx, sellerID, seller.Balance.Add(notional))
}

func moveHolding(ctx context.Context, tx store.Store, buyerID, sellerID, instrumentID uint, quantity int64) error {
	buyerHolding, ok, err := tx.GetHolding(ctx, buyerID, instrumentID)
	if err != nil {
		return err
	}
	if !ok {
		buyerHolding = model.Holding{UserID: buyerID, InstrumentID: instrumentID}
	}
	buyerHolding.Quantity += quantity
	if err := tx.UpsertHolding(ctx, buyerHolding); err != nil {
		return err
	}

	sellerHolding, ok, err := tx.GetHolding(ctx, sellerID, instrumentID)
	if err != nil {
		return err
	}
	if !ok || sellerHolding.Quantity < quantity {
		held := int64(0)
		if ok {
			held = sellerHolding.Quantity
		}
		return errors.Wrapf(exception.ErrSellerHoldingShort,
			"seller %d holds %d of instrument %d, traded %d", sellerID, held, instrumentID, quantity)
	}

	sellerHolding.Quantity -= quantity
	if sellerHolding.Quantity == 0 {
		return tx.DeleteHolding(ctx, sellerID, instrumentID)
	}
	return tx.UpsertHolding(ctx, sellerHolding)
}

func applyFill(ctx context.Context, tx store.Store, order *model.Order, quantity int64) error {
	status, remaining := filledState(order, quantity)
	return tx.UpdateOrder(ctx, order.ID, status, remaining)
}

func commitFill(order *model.Order, quantity int64) {
	order.Status, order.Quantity = filledState(order, quantity)
}

func filledState(order *model.Order, quantity int64) (enum.OrderStatus, int64) {
	if order.Quantity == quantity {
		return enum.OrderStatusExecuted, 0
	}
	return enum.OrderStatusPartialFill, order.Quantity - quantity
}
