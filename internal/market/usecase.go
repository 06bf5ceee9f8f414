// Package market manages the instrument list and its displayed prices. The
// displayed price belongs to the price feed and reporting; matching never
// reads it.
package market

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/store"
	"main/pkg/exception"
)

// Usecase manages instrument records.
type Usecase struct {
	store store.Store
}

// NewUsecase creates the market usecase.
func NewUsecase(s store.Store) *Usecase {
	return &Usecase{store: s}
}

// Add lists a new instrument at the given initial price.
func (use *Usecase) Add(ctx context.Context, symbol, companyName string, initialPrice decimal.Decimal) (model.Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Instrument{}, exception.ErrEmptySymbol
	}
	if strings.TrimSpace(companyName) == "" {
		return model.Instrument{}, errors.Wrap(exception.ErrValidation, "company name must not be empty")
	}
	if !initialPrice.IsPositive() {
		return model.Instrument{}, exception.ErrNonPositivePrice
	}

	if _, ok, err := use.store.GetInstrumentBySymbol(ctx, symbol); err != nil {
		return model.Instrument{}, err
	} else if ok {
		return model.Instrument{}, errors.Wrapf(exception.ErrDuplicateSymbol, "symbol %s", symbol)
	}

	instrument := model.Instrument{Symbol: symbol, CompanyName: companyName, CurrentPrice: initialPrice}
	if err := use.store.CreateInstrument(ctx, &instrument); err != nil {
		return model.Instrument{}, err
	}

	logs.Infof("instrument %s listed at %s", instrument.Symbol, instrument.CurrentPrice)
	return instrument, nil
}

// List returns every listed instrument.
func (use *Usecase) List(ctx context.Context) ([]model.Instrument, error) {
	return use.store.ListInstruments(ctx)
}

// BySymbol looks an instrument up by its symbol.
func (use *Usecase) BySymbol(ctx context.Context, symbol string) (model.Instrument, bool, error) {
	return use.store.GetInstrumentBySymbol(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}

// UpdatePrice sets the instrument's displayed price.
func (use *Usecase) UpdatePrice(ctx context.Context, instrumentID uint, price decimal.Decimal) error {
	if !price.IsPositive() {
		return exception.ErrNonPositivePrice
	}
	if _, ok, err := use.store.GetInstrument(ctx, instrumentID); err != nil {
		return err
	} else if !ok {
		return errors.Wrapf(exception.ErrUnknownInstrument, "instrument %d", instrumentID)
	}
	return use.store.UpdateInstrumentPrice(ctx, instrumentID, price)
}
