package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// User holds the cash side of the ledger. Balance is mutated only by
// settlement; intake reads it once for the affordability check.
type User struct {
	ID       uint            `gorm:"primaryKey"`
	Username string          `gorm:"size:255;uniqueIndex;not null"`
	Balance  decimal.Decimal `gorm:"type:numeric(19,4);not null"`

	CreatedAt time.Time
}

// Instrument is a tradable symbol. CurrentPrice belongs to the price feed
// and reporting; matching reads order limit prices only.
type Instrument struct {
	ID           uint            `gorm:"primaryKey"`
	Symbol       string          `gorm:"size:10;uniqueIndex;not null"`
	CompanyName  string          `gorm:"size:255;not null"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric(19,4);not null"`
}

// Order is a resting limit order. Quantity is the remaining quantity and is
// mutated down by settlement; InitialQuantity never changes, so
// Quantity + filled-via-trades always equals InitialQuantity.
type Order struct {
	ID              uint             `gorm:"primaryKey"`
	UserID          uint             `gorm:"index;not null"`
	InstrumentID    uint             `gorm:"index;not null"`
	Side            enum.Side        `gorm:"type:smallint;not null"`
	Price           decimal.Decimal  `gorm:"type:numeric(19,4);not null"`
	Quantity        int64            `gorm:"not null"`
	InitialQuantity int64            `gorm:"not null"`
	Status          enum.OrderStatus `gorm:"type:smallint;index;not null"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Filled returns the cumulative executed quantity.
func (o Order) Filled() int64 {
	return o.InitialQuantity - o.Quantity
}

// Open reports whether the order can still be matched.
func (o Order) Open() bool {
	return o.Status == enum.OrderStatusPending || o.Status == enum.OrderStatusPartialFill
}

// Trade is the append-only audit record of one settlement. Never updated,
// never deleted.
type Trade struct {
	ID           uint            `gorm:"primaryKey"`
	BuyerID      uint            `gorm:"index;not null"`
	SellerID     uint            `gorm:"index;not null"`
	InstrumentID uint            `gorm:"index;not null"`
	Price        decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	Quantity     int64           `gorm:"not null"`

	CreatedAt time.Time `gorm:"index"`
}

// Notional returns price multiplied by quantity.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// Holding is a user's position in one instrument. Deleted, not zeroed, when
// quantity reaches exactly zero.
type Holding struct {
	UserID       uint  `gorm:"primaryKey;autoIncrement:false"`
	InstrumentID uint  `gorm:"primaryKey;autoIncrement:false"`
	Quantity     int64 `gorm:"not null"`
}
