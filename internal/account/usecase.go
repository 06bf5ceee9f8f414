// Package account creates users and answers balance queries. There is no
// authentication here; identity is out of scope for the simulator core.
package account

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

// Usecase manages user records.
type Usecase struct {
	store store.Store
}

// NewUsecase creates the account usecase.
func NewUsecase(s store.Store) *Usecase {
	return &Usecase{store: s}
}

// Register creates a user with the given starting balance.
func (use *Usecase) Register(ctx context.Context, username string, initialBalance decimal.Decimal) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.User{}, exception.ErrEmptyUsername
	}
	if initialBalance.IsNegative() {
		return model.User{}, errors.Wrap(exception.ErrValidation, "initial balance must not be negative")
	}

	if _, ok, err := use.store.GetUserByUsername(ctx, username); err != nil {
		return model.User{}, err
	} else if ok {
		return model.User{}, errors.Wrapf(exception.ErrDuplicateUsername, "username %s", username)
	}

	user := model.User{Username: username, Balance: initialBalance}
	if err := use.store.CreateUser(ctx, &user); err != nil {
		return model.User{}, err
	}

	logs.Infof("user %s registered with id %d", user.Username, user.ID)
	return user, nil
}

// Get looks a user up by id.
func (use *Usecase) Get(ctx context.Context, userID uint) (model.User, bool, error) {
	return use.store.GetUser(ctx, userID)
}

// Balance returns the user's current cash balance.
func (use *Usecase) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	user, ok, err := use.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, errors.Wrapf(exception.ErrUnknownUser, "user %d", userID)
	}
	return user.Balance, nil
}
