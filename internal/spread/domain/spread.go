// Package domain 价差记录服务的领域模型
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pair 交易对，身份由 (Base, Quote) 决定而非 ID
type Pair struct {
	ID    string
	Base  string
	Quote string
}

// SameAs 按 (Base, Quote) 比较
func (p Pair) SameAs(other Pair) bool {
	return p.Base == other.Base && p.Quote == other.Quote
}

// ExchangeKind 交易所报价类别
type ExchangeKind string

const (
	KindSpot    ExchangeKind = "spot"
	KindFutures ExchangeKind = "futures"
)

// Valid 是否为已知类别
func (k ExchangeKind) Valid() bool {
	return k == KindSpot || k == KindFutures
}

// ExchangeQuote 某交易所在价差记录时刻的报价快照，生命周期归属于 Spread
type ExchangeQuote struct {
	ID                string
	ExchangeName      string
	Kind              ExchangeKind
	DifferencePercent *string
	Profit            *decimal.Decimal
	AveragePrice      *decimal.Decimal
	Volume            *decimal.Decimal
	DepositStatus     *string
	WithdrawalStatus  *string
	Link              *string
}

// Direction 套利方向
type Direction struct {
	From *string
	To   *string
}

// CEXData 中心化交易所报价，按类别分为现货与合约两组
type CEXData struct {
	Spot    []ExchangeQuote
	Futures []ExchangeQuote
}

// Empty 两组都为空
func (c *CEXData) Empty() bool {
	return c == nil || (len(c.Spot) == 0 && len(c.Futures) == 0)
}

// Quotes 按 现货、合约 顺序展开为单一列表，并按所在分组打上类别
func (c *CEXData) Quotes() []ExchangeQuote {
	if c == nil {
		return nil
	}
	out := make([]ExchangeQuote, 0, len(c.Spot)+len(c.Futures))
	for _, q := range c.Spot {
		q.Kind = KindSpot
		out = append(out, q)
	}
	for _, q := range c.Futures {
		q.Kind = KindFutures
		out = append(out, q)
	}
	return out
}

// GroupQuotes 将扁平报价按类别重新分组，保持原有顺序；全部为空时返回 nil
func GroupQuotes(quotes []ExchangeQuote) *CEXData {
	if len(quotes) == 0 {
		return nil
	}
	cex := &CEXData{
		Spot:    []ExchangeQuote{},
		Futures: []ExchangeQuote{},
	}
	for _, q := range quotes {
		switch q.Kind {
		case KindFutures:
			cex.Futures = append(cex.Futures, q)
		default:
			cex.Spot = append(cex.Spot, q)
		}
	}
	return cex
}

// Spread 价差聚合根
type Spread struct {
	ID            string
	Pair          Pair
	Network       *string
	SpreadPercent float64
	Contract      *string
	Dex           *string
	Price1        *decimal.Decimal
	Price2        *decimal.Decimal
	PriceFor      *decimal.Decimal
	Direction     Direction
	Timestamp     time.Time
	Liquidity     *int64
	FDV           *int64
	DaysOnMarket  *int64
	CEX           *CEXData
}

// NormalizeExchangeName 交易所名称统一为去空白的小写形式
func NormalizeExchangeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
