package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// PostgresOption defines connection options for the postgres-backed store.
type PostgresOption struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (opt PostgresOption) dsn() string {
	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, opt.Database, sslMode)
	if opt.User != "" {
		dsn += " user=" + opt.User
	}
	if opt.Password != "" {
		dsn += " password=" + opt.Password
	}
	return dsn
}

// Postgres is the durable Store implementation. Settlement atomicity rides on
// database transactions, so partially-applied settlements are never visible
// to concurrent readers.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects, migrates the schema and returns the store.
func OpenPostgres(option PostgresOption) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(option.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Instrument{},
		&model.Order{},
		&model.Trade{},
		&model.Holding{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}

	return &Postgres{db: db}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Postgres{db: tx})
	})
}

func (p *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	return wrapStore(p.db.WithContext(ctx).Create(user).Error, "create user")
}

func (p *Postgres) GetUser(ctx context.Context, id uint) (model.User, bool, error) {
	var user model.User
	err := p.db.WithContext(ctx).First(&user, id).Error
	return found(user, err, "get user")
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (model.User, bool, error) {
	var user model.User
	err := p.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return found(user, err, "get user by username")
}

func (p *Postgres) UpdateBalance(ctx context.Context, userID uint, balance decimal.Decimal) error {
	result := p.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("balance", balance)
	if result.Error != nil {
		return wrapStore(result.Error, "update balance")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(exception.ErrStore, "update balance: user %d not found", userID)
	}
	return nil
}

func (p *Postgres) CreateInstrument(ctx context.Context, instrument *model.Instrument) error {
	return wrapStore(p.db.WithContext(ctx).Create(instrument).Error, "create instrument")
}

func (p *Postgres) GetInstrument(ctx context.Context, id uint) (model.Instrument, bool, error) {
	var instrument model.Instrument
	err := p.db.WithContext(ctx).First(&instrument, id).Error
	return found(instrument, err, "get instrument")
}

func (p *Postgres) GetInstrumentBySymbol(ctx context.Context, symbol string) (model.Instrument, bool, error) {
	var instrument model.Instrument
	err := p.db.WithContext(ctx).Where("symbol = ?", symbol).First(&instrument).Error
	return found(instrument, err, "get instrument by symbol")
}

func (p *Postgres) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	var instruments []model.Instrument
	err := p.db.WithContext(ctx).Order("id ASC").Find(&instruments).Error
	return instruments, wrapStore(err, "list instruments")
}

func (p *Postgres) UpdateInstrumentPrice(ctx context.Context, id uint, price decimal.Decimal) error {
	result := p.db.WithContext(ctx).Model(&model.Instrument{}).Where("id = ?", id).
		Update("current_price", price)
	if result.Error != nil {
		return wrapStore(result.Error, "update instrument price")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(exception.ErrStore, "update instrument price: instrument %d not found", id)
	}
	return nil
}

func (p *Postgres) CreateOrder(ctx context.Context, order *model.Order) error {
	return wrapStore(p.db.WithContext(ctx).Create(order).Error, "create order")
}

func (p *Postgres) GetOrder(ctx context.Context, id uint) (model.Order, bool, error) {
	var order model.Order
	err := p.db.WithContext(ctx).First(&order, id).Error
	return found(order, err, "get order")
}

func (p *Postgres) FindPendingOrders(ctx context.Context, instrumentID uint, side enum.Side) ([]model.Order, error) {
	priceOrder := "price ASC"
	if side == enum.SideBuy {
		priceOrder = "price DESC"
	}

	var orders []model.Order
	err := p.db.WithContext(ctx).
		Where("instrument_id = ? AND side = ? AND status IN ?", instrumentID, side,
			[]enum.OrderStatus{enum.OrderStatusPending, enum.OrderStatusPartialFill}).
		Order(priceOrder).Order("created_at ASC").Order("id ASC").
		Find(&orders).Error
	return orders, wrapStore(err, "find pending orders")
}

func (p *Postgres) FindOrdersByUser(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	return orders, wrapStore(err, "find orders by user")
}

func (p *Postgres) UpdateOrder(ctx context.Context, id uint, status enum.OrderStatus, quantity int64) error {
	result := p.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "quantity": quantity})
	if result.Error != nil {
		return wrapStore(result.Error, "update order")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(exception.ErrStore, "update order: order %d not found", id)
	}
	return nil
}

func (p *Postgres) CreateTrade(ctx context.Context, trade *model.Trade) error {
	return wrapStore(p.db.WithContext(ctx).Create(trade).Error, "create trade")
}

func (p *Postgres) FindTradesByUser(ctx context.Context, userID uint) ([]model.Trade, error) {
	var trades []model.Trade
	err := p.db.WithContext(ctx).Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Find(&trades).Error
	return trades, wrapStore(err, "find trades by user")
}

func (p *Postgres) FindTradesByInstrument(ctx context.Context, instrumentID uint) ([]model.Trade, error) {
	var trades []model.Trade
	err := p.db.WithContext(ctx).Where("instrument_id = ?", instrumentID).
		Order("created_at DESC").Order("id DESC").
		Find(&trades).Error
	return trades, wrapStore(err, "find trades by instrument")
}

func (p *Postgres) GetHolding(ctx context.Context, userID, instrumentID uint) (model.Holding, bool, error) {
	var holding model.Holding
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND instrument_id = ?", userID, instrumentID).
		First(&holding).Error
	return found(holding, err, "get holding")
}

func (p *Postgres) UpsertHolding(ctx context.Context, holding model.Holding) error {
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "instrument_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
	}).Create(&holding).Error
	return wrapStore(err, "upsert holding")
}

func (p *Postgres) DeleteHolding(ctx context.Context, userID, instrumentID uint) error {
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND instrument_id = ?", userID, instrumentID).
		Delete(&model.Holding{}).Error
	return wrapStore(err, "delete holding")
}

func (p *Postgres) FindHoldingsByUser(ctx context.Context, userID uint) ([]model.Holding, error) {
	var holdings []model.Holding
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("instrument_id ASC").
		Find(&holdings).Error
	return holdings, wrapStore(err, "find holdings by user")
}

func found[T any](record T, err error, op string) (T, bool, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, wrapStore(err, op)
	}
	return record, true, nil
}

func wrapStore(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(exception.ErrStore, "%s, err: %+v", op, err)
}
