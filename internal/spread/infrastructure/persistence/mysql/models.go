package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PairModel 交易对表，(base, quote) 唯一
type PairModel struct {
	ID    string `gorm:"primaryKey;type:varchar(36);column:id"`
	Base  string `gorm:"column:base;type:varchar(32);not null;uniqueIndex:idx_pairs_base_quote,priority:1"`
	Quote string `gorm:"column:quote;type:varchar(32);not null;uniqueIndex:idx_pairs_base_quote,priority:2"`
}

func (PairModel) TableName() string { return "pairs" }

func (m *PairModel) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// SpreadModel 价差表
type SpreadModel struct {
	ID            string              `gorm:"primaryKey;type:varchar(36);column:id"`
	PairID        string              `gorm:"column:pair_id;type:varchar(36);not null;index"`
	Contract      *string             `gorm:"column:contract;type:varchar(255)"`
	Network       *string             `gorm:"column:network;type:varchar(64);index"`
	SpreadPercent float64             `gorm:"column:spread_percent;not null;index"`
	Price1        decimal.NullDecimal `gorm:"column:price_1;type:decimal(32,12)"`
	Price2        decimal.NullDecimal `gorm:"column:price_2;type:decimal(32,12)"`
	PriceFor      decimal.NullDecimal `gorm:"column:price_for;type:decimal(32,12)"`
	Dex           *string             `gorm:"column:dex;type:varchar(128)"`
	DirectionFrom *string             `gorm:"column:direction_from;type:varchar(64)"`
	DirectionTo   *string             `gorm:"column:direction_to;type:varchar(64)"`
	Timestamp     time.Time           `gorm:"column:timestamp;not null;index"`
	Liquidity     *int64              `gorm:"column:liquidity;index"`
	FDV           *int64              `gorm:"column:fdv;index"`
	DaysOnMarket  *int64              `gorm:"column:days_on_market"`

	Pair   PairModel            `gorm:"foreignKey:PairID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Quotes []ExchangeQuoteModel `gorm:"foreignKey:SpreadID;references:ID;constraint:OnDelete:CASCADE"`
}

func (SpreadModel) TableName() string { return "spreads" }

func (m *SpreadModel) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ExchangeQuoteModel 报价表，现货与合约共用，以 exchange_kind 区分；seq 保持写入顺序
type ExchangeQuoteModel struct {
	ID                string              `gorm:"primaryKey;type:varchar(36);column:id"`
	SpreadID          string              `gorm:"column:spread_id;type:varchar(36);not null;index:idx_exchange_quotes_spread_kind,priority:1"`
	ExchangeName      string              `gorm:"column:exchange_name;type:varchar(128);not null;index"`
	ExchangeKind      string              `gorm:"column:exchange_kind;type:varchar(16);not null;index:idx_exchange_quotes_spread_kind,priority:2"`
	Seq               int                 `gorm:"column:seq;not null;default:0"`
	DifferencePercent *string             `gorm:"column:difference_percent;type:varchar(64)"`
	Profit            decimal.NullDecimal `gorm:"column:profit;type:decimal(32,12)"`
	AveragePrice      decimal.NullDecimal `gorm:"column:average_price;type:decimal(32,12)"`
	Volume            decimal.NullDecimal `gorm:"column:volume;type:decimal(32,12)"`
	DepositStatus     *string             `gorm:"column:deposit_status;type:varchar(32)"`
	WithdrawalStatus  *string             `gorm:"column:withdrawal_status;type:varchar(32)"`
	Link              *string             `gorm:"column:link;type:varchar(1024)"`
}

func (ExchangeQuoteModel) TableName() string { return "exchange_quotes" }

func (m *ExchangeQuoteModel) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Models 按依赖顺序返回需要迁移的模型
func Models() []any {
	return []any{&PairModel{}, &SpreadModel{}, &ExchangeQuoteModel{}}
}

// AutoMigrate 建表、索引与外键
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// ResetSchema 删除并重建全部表，仅供初始化数据使用
func ResetSchema(db *gorm.DB) error {
	m := db.Migrator()
	for _, table := range []string{"exchange_quotes", "spreads", "pairs"} {
		if err := m.DropTable(table); err != nil {
			return err
		}
	}
	return AutoMigrate(db)
}
