package main

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/spreadhub/internal/spread/domain"
)

func str(v string) *string { return &v }
func num(v int64) *int64 { return &v }

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func sampleQuote(exchange, avgPrice, status, link string) domain.ExchangeQuote {
	return domain.ExchangeQuote{
		ExchangeName:      exchange,
		Kind:              domain.KindSpot,
		DifferencePercent: str("0.5%"),
		Profit:            dec("1.05"),
		AveragePrice:      dec(avgPrice),
		Volume:            dec("1000"),
		DepositStatus:     str(status),
		WithdrawalStatus:  str(status),
		Link:              str(link),
	}
}

func initialSpreads(now time.Time) []*domain.Spread {
	cexToDex := domain.Direction{From: str("CEX"), To: str("DEX")}
	return []*domain.Spread{
		{
			Pair:          domain.Pair{Base: "ETH", Quote: "USDT"},
			Network:       str("ETH"),
			SpreadPercent: 1.03,
			Direction:     cexToDex,
			Timestamp:     now,
			Liquidity:     num(1234567),
			FDV:           num(100000000),
			DaysOnMarket:  num(30),
			CEX: &domain.CEXData{
				Spot: []domain.ExchangeQuote{
					sampleQuote("binance", "2971.50", "🟠", "http://binance.com/eth_usdt"),
					sampleQuote("bybit", "2971.50", "🟠", "http://binance.com/eth_usdt"),
				},
				Futures: []domain.ExchangeQuote{},
			},
		},
		{
			Pair:          domain.Pair{Base: "BTC", Quote: "USDT"},
			Network:       str("BTC"),
			SpreadPercent: 0.24,
			Direction:     cexToDex,
			Timestamp:     now,
			Liquidity:     num(500000),
			FDV:           num(900000000),
			DaysOnMarket:  num(180),
			CEX: &domain.CEXData{
				Spot: []domain.ExchangeQuote{
					sampleQuote("coinbase", "42000.00", "🟠", "http://coinbase.com/btc_usdt"),
					sampleQuote("kraken", "42100.00", "🟠", "http://kraken.com/btc_usdt"),
				},
				Futures: []domain.ExchangeQuote{},
			},
		},
		{
			Pair:          domain.Pair{Base: "SOL", Quote: "USDT"},
			Network:       str("SOLANA"),
			SpreadPercent: 1.55,
			Direction:     cexToDex,
			Timestamp:     now,
			Liquidity:     num(250000),
			FDV:           num(50000000),
			DaysOnMarket:  num(90),
			CEX: &domain.CEXData{
				Spot: []domain.ExchangeQuote{
					sampleQuote("kraken", "42100.00", "🟢", "http://kraken.com/btc_usdt"),
				},
				Futures: []domain.ExchangeQuote{},
			},
		},
	}
}
