package mysql

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/spreadhub/internal/spread/domain"
)

// --- mapping helpers ---

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// toSpreadModel 方向拆成两列；不含报价与交易对，二者由仓储单独写入
func toSpreadModel(s *domain.Spread, pairID string) *SpreadModel {
	return &SpreadModel{
		ID:            s.ID,
		PairID:        pairID,
		Contract:      s.Contract,
		Network:       s.Network,
		SpreadPercent: s.SpreadPercent,
		Price1:        toNullDecimal(s.Price1),
		Price2:        toNullDecimal(s.Price2),
		PriceFor:      toNullDecimal(s.PriceFor),
		Dex:           s.Dex,
		DirectionFrom: s.Direction.From,
		DirectionTo:   s.Direction.To,
		Timestamp:     s.Timestamp.UTC(),
		Liquidity:     s.Liquidity,
		FDV:           s.FDV,
		DaysOnMarket:  s.DaysOnMarket,
	}
}

// scalarColumns 整体替换时写入的全部标量列，nil 写为 NULL
func scalarColumns(m *SpreadModel) map[string]any {
	return map[string]any{
		"pair_id":        m.PairID,
		"contract":       m.Contract,
		"network":        m.Network,
		"spread_percent": m.SpreadPercent,
		"price_1":        m.Price1,
		"price_2":        m.Price2,
		"price_for":      m.PriceFor,
		"dex":            m.Dex,
		"direction_from": m.DirectionFrom,
		"direction_to":   m.DirectionTo,
		"timestamp":      m.Timestamp,
		"liquidity":      m.Liquidity,
		"fdv":            m.FDV,
		"days_on_market": m.DaysOnMarket,
	}
}

// toQuoteModels 现货在前、合约在后展开为一组行，类别来自所在分组
func toQuoteModels(spreadID string, cex *domain.CEXData) []ExchangeQuoteModel {
	quotes := cex.Quotes()
	if len(quotes) == 0 {
		return nil
	}
	rows := make([]ExchangeQuoteModel, 0, len(quotes))
	for i, q := range quotes {
		rows = append(rows, ExchangeQuoteModel{
			SpreadID:          spreadID,
			ExchangeName:      q.ExchangeName,
			ExchangeKind:      string(q.Kind),
			Seq:               i,
			DifferencePercent: q.DifferencePercent,
			Profit:            toNullDecimal(q.Profit),
			AveragePrice:      toNullDecimal(q.AveragePrice),
			Volume:            toNullDecimal(q.Volume),
			DepositStatus:     q.DepositStatus,
			WithdrawalStatus:  q.WithdrawalStatus,
			Link:              q.Link,
		})
	}
	return rows
}

func toQuote(m *ExchangeQuoteModel) domain.ExchangeQuote {
	return domain.ExchangeQuote{
		ID:                m.ID,
		ExchangeName:      m.ExchangeName,
		Kind:              domain.ExchangeKind(m.ExchangeKind),
		DifferencePercent: m.DifferencePercent,
		Profit:            fromNullDecimal(m.Profit),
		AveragePrice:      fromNullDecimal(m.AveragePrice),
		Volume:            fromNullDecimal(m.Volume),
		DepositStatus:     m.DepositStatus,
		WithdrawalStatus:  m.WithdrawalStatus,
		Link:              m.Link,
	}
}

// toSpread 重建 Pair 与 Direction，报价按 seq 顺序分组；没有任何报价时 CEX 为 nil
func toSpread(m *SpreadModel) *domain.Spread {
	if m == nil {
		return nil
	}
	quotes := make([]domain.ExchangeQuote, 0, len(m.Quotes))
	for i := range m.Quotes {
		quotes = append(quotes, toQuote(&m.Quotes[i]))
	}
	return &domain.Spread{
		ID: m.ID,
		Pair: domain.Pair{
			ID:    m.Pair.ID,
			Base:  m.Pair.Base,
			Quote: m.Pair.Quote,
		},
		Network:       m.Network,
		SpreadPercent: m.SpreadPercent,
		Contract:      m.Contract,
		Dex:           m.Dex,
		Price1:        fromNullDecimal(m.Price1),
		Price2:        fromNullDecimal(m.Price2),
		PriceFor:      fromNullDecimal(m.PriceFor),
		Direction: domain.Direction{
			From: m.DirectionFrom,
			To:   m.DirectionTo,
		},
		Timestamp:    m.Timestamp.UTC(),
		Liquidity:    m.Liquidity,
		FDV:          m.FDV,
		DaysOnMarket: m.DaysOnMarket,
		CEX:          domain.GroupQuotes(quotes),
	}
}
