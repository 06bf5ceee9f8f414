// Package portfolio derives read-only reporting views from the ledger:
// holdings with valuation and trade history. It owns no state of its own.
package portfolio

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/store"
	"main/pkg/exception"
)

// HoldingDetail is one portfolio row valued at the instrument's displayed
// price.
type HoldingDetail struct {
	Symbol       string
	CompanyName  string
	Quantity     int64
	CurrentPrice decimal.Decimal
}

// Value returns the holding's extended value at the current price.
func (d HoldingDetail) Value() decimal.Decimal {
	return d.CurrentPrice.Mul(decimal.NewFromInt(d.Quantity))
}

// Usecase answers portfolio queries.
type Usecase struct {
	store store.Store
}

// NewUsecase creates the portfolio usecase.
func NewUsecase(s store.Store) *Usecase {
	return &Usecase{store: s}
}

// Holdings returns the user's positions joined with instrument data, valued
// at the current displayed price.
func (use *Usecase) Holdings(ctx context.Context, userID uint) ([]HoldingDetail, error) {
	if _, ok, err := use.store.GetUser(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.Wrapf(exception.ErrUnknownUser, "user %d", userID)
	}

	holdings, err := use.store.FindHoldingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	details := make([]HoldingDetail, 0, len(holdings))
	for _, holding := range holdings {
		instrument, ok, err := use.store.GetInstrument(ctx, holding.InstrumentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			logs.Errorf("holding references unknown instrument %d for user %d", holding.InstrumentID, userID)
			continue
		}
		details = append(details, HoldingDetail{
			Symbol:       instrument.Symbol,
			CompanyName:  instrument.CompanyName,
			Quantity:     holding.Quantity,
			CurrentPrice: instrument.CurrentPrice,
		})
	}
	return details, nil
}

// TotalValue sums the user's holdings at current prices.
func (use *Usecase) TotalValue(ctx context.Context, userID uint) (decimal.Decimal, error) {
	details, err := use.Holdings(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, detail := range details {
		total = total.Add(detail.Value())
	}
	return total, nil
}

// Trades returns the user's trade history, newest first.
func (use *Usecase) Trades(ctx context.Context, userID uint) ([]model.Trade, error) {
	if _, ok, err := use.store.GetUser(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.Wrapf(exception.ErrUnknownUser, "user %d", userID)
	}
	return use.store.FindTradesByUser(ctx, userID)
}

// InstrumentTrades returns an instrument's trade history, newest first.
func (use *Usecase) InstrumentTrades(ctx context.Context, instrumentID uint) ([]model.Trade, error) {
	return use.store.FindTradesByInstrument(ctx, instrumentID)
}
