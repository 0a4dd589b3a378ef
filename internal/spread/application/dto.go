package application

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/spreadhub/internal/spread/domain"
)

type PairDTO struct {
	ID    string `json:"id,omitempty"`
	Base  string `json:"base" binding:"required"`
	Quote string `json:"quote" binding:"required"`
}

// QuoteDTO 交易所报价，字段使用短别名
type QuoteDTO struct {
	ID                string           `json:"id,omitempty"`
	ExchangeName      string           `json:"exchange" binding:"required"`
	ExchangeKind      string           `json:"exchange_kind"`
	DifferencePercent *string          `json:"dif"`
	Profit            *decimal.Decimal `json:"prof"`
	AveragePrice      *decimal.Decimal `json:"av_price"`
	Volume            *decimal.Decimal `json:"vol"`
	DepositStatus     *string          `json:"d"`
	WithdrawalStatus  *string          `json:"w"`
	Link              *string          `json:"link"`
}

type DirectionDTO struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

type CEXDTO struct {
	Spot    []QuoteDTO `json:"spot" binding:"dive"`
	Futures []QuoteDTO `json:"futures" binding:"dive"`
}

// SpreadDTO 对外输出的价差
type SpreadDTO struct {
	ID            string           `json:"id"`
	Network       *string          `json:"network"`
	SpreadPercent float64          `json:"spread"`
	Pair          PairDTO          `json:"pair"`
	Contract      *string          `json:"contract"`
	Dex           *string          `json:"dex"`
	Price1        *decimal.Decimal `json:"price_1"`
	Price2        *decimal.Decimal `json:"price_2"`
	PriceFor      *decimal.Decimal `json:"price_for"`
	Direction     DirectionDTO     `json:"direction"`
	Timestamp     time.Time        `json:"timestamp"`
	Liquidity     *int64           `json:"liquidity"`
	FDV           *int64           `json:"fdv"`
	DaysOnMarket  *int64           `json:"days"`
	CEX           *CEXDTO          `json:"cex"`
}

// SpreadListDTO 分页结果，total_count 与分页参数无关
type SpreadListDTO struct {
	Spreads    []*SpreadDTO `json:"spreads"`
	TotalCount int64        `json:"total_count"`
}

// SpreadInput 创建与整体更新共用的请求体；timestamp 缺省时取写入时间
type SpreadInput struct {
	Network       string           `json:"network" binding:"required"`
	SpreadPercent *float64         `json:"spread" binding:"required"`
	Contract      *string          `json:"contract"`
	Dex           *string          `json:"dex"`
	Price1        *decimal.Decimal `json:"price_1"`
	Price2        *decimal.Decimal `json:"price_2"`
	PriceFor      *decimal.Decimal `json:"price_for"`
	Pair          *PairDTO         `json:"pair" binding:"required"`
	Direction     *DirectionDTO    `json:"direction" binding:"required"`
	Timestamp     *time.Time       `json:"timestamp"`
	Liquidity     *int64           `json:"liquidity" binding:"required"`
	FDV           *int64           `json:"fdv" binding:"required"`
	DaysOnMarket  *int64           `json:"days" binding:"required"`
	CEX           *CEXDTO          `json:"cex" binding:"required"`
}

// ListSpreadsQuery 列表查询参数
type ListSpreadsQuery struct {
	Limit         *int     `form:"limit"`
	Offset        *int     `form:"offset"`
	Network       *string  `form:"network"`
	Exchanges     *string  `form:"exchanges"`
	FromSpread    *float64 `form:"from_spread"`
	ToSpread      *float64 `form:"to_spread"`
	FromLiquidity *float64 `form:"from_liquidity"`
	ToLiquidity   *float64 `form:"to_liquidity"`
	FromFDV       *float64 `form:"from_fdv"`
	ToFDV         *float64 `form:"to_fdv"`
	SortBy        string   `form:"sort_by"`
	OrderBy       string   `form:"order_by"`
}

func (q ListSpreadsQuery) toParams() domain.FilterParams {
	return domain.FilterParams{
		Limit:         q.Limit,
		Offset:        q.Offset,
		Network:       q.Network,
		Exchanges:     q.Exchanges,
		FromSpread:    q.FromSpread,
		ToSpread:      q.ToSpread,
		FromLiquidity: q.FromLiquidity,
		ToLiquidity:   q.ToLiquidity,
		FromFDV:       q.FromFDV,
		ToFDV:         q.ToFDV,
		SortBy:        q.SortBy,
		OrderBy:       q.OrderBy,
	}
}

// toDomain 报价的类别由所在分组决定，请求中的 exchange_kind 不参与
func (in *SpreadInput) toDomain() (*domain.Spread, error) {
	if in == nil {
		return nil, &domain.ValidationError{Field: "body", Reason: "is required"}
	}
	if in.SpreadPercent == nil {
		return nil, &domain.ValidationError{Field: "spread", Reason: "is required"}
	}
	if in.Pair == nil || in.Pair.Base == "" || in.Pair.Quote == "" {
		return nil, &domain.ValidationError{Field: "pair", Reason: "base and quote are required"}
	}

	network := in.Network
	s := &domain.Spread{
		Pair:          domain.Pair{Base: in.Pair.Base, Quote: in.Pair.Quote},
		Network:       &network,
		SpreadPercent: *in.SpreadPercent,
		Contract:      in.Contract,
		Dex:           in.Dex,
		Price1:        in.Price1,
		Price2:        in.Price2,
		PriceFor:      in.PriceFor,
		Liquidity:     in.Liquidity,
		FDV:           in.FDV,
		DaysOnMarket:  in.DaysOnMarket,
	}
	if in.Direction != nil {
		s.Direction = domain.Direction{From: in.Direction.From, To: in.Direction.To}
	}
	if in.Timestamp != nil {
		s.Timestamp = in.Timestamp.UTC()
	}
	if in.CEX != nil {
		spot, err := toQuotes("cex.spot", in.CEX.Spot, domain.KindSpot)
		if err != nil {
			return nil, err
		}
		futures, err := toQuotes("cex.futures", in.CEX.Futures, domain.KindFutures)
		if err != nil {
			return nil, err
		}
		if len(spot) > 0 || len(futures) > 0 {
			s.CEX = &domain.CEXData{Spot: spot, Futures: futures}
		}
	}
	return s, nil
}

func toQuotes(field string, in []QuoteDTO, kind domain.ExchangeKind) ([]domain.ExchangeQuote, error) {
	out := make([]domain.ExchangeQuote, 0, len(in))
	for i, q := range in {
		if domain.NormalizeExchangeName(q.ExchangeName) == "" {
			return nil, &domain.ValidationError{Field: field, Reason: "exchange is required at index " + strconv.Itoa(i)}
		}
		out = append(out, domain.ExchangeQuote{
			ExchangeName:      q.ExchangeName,
			Kind:              kind,
			DifferencePercent: q.DifferencePercent,
			Profit:            q.Profit,
			AveragePrice:      q.AveragePrice,
			Volume:            q.Volume,
			DepositStatus:     q.DepositStatus,
			WithdrawalStatus:  q.WithdrawalStatus,
			Link:              q.Link,
		})
	}
	return out, nil
}

// ToSpreadDTO 聚合转输出结构
func ToSpreadDTO(s *domain.Spread) *SpreadDTO {
	if s == nil {
		return nil
	}
	dto := &SpreadDTO{
		ID:            s.ID,
		Network:       s.Network,
		SpreadPercent: s.SpreadPercent,
		Pair:          PairDTO{ID: s.Pair.ID, Base: s.Pair.Base, Quote: s.Pair.Quote},
		Contract:      s.Contract,
		Dex:           s.Dex,
		Price1:        s.Price1,
		Price2:        s.Price2,
		PriceFor:      s.PriceFor,
		Direction:     DirectionDTO{From: s.Direction.From, To: s.Direction.To},
		Timestamp:     s.Timestamp,
		Liquidity:     s.Liquidity,
		FDV:           s.FDV,
		DaysOnMarket:  s.DaysOnMarket,
	}
	if s.CEX != nil {
		dto.CEX = &CEXDTO{
			Spot:    toQuoteDTOs(s.CEX.Spot, domain.KindSpot),
			Futures: toQuoteDTOs(s.CEX.Futures, domain.KindFutures),
		}
	}
	return dto
}

func toQuoteDTOs(quotes []domain.ExchangeQuote, kind domain.ExchangeKind) []QuoteDTO {
	out := make([]QuoteDTO, 0, len(quotes))
	for _, q := range quotes {
		k := q.Kind
		if k == "" {
			k = kind
		}
		out = append(out, QuoteDTO{
			ID:                q.ID,
			ExchangeName:      q.ExchangeName,
			ExchangeKind:      string(k),
			DifferencePercent: q.DifferencePercent,
			Profit:            q.Profit,
			AveragePrice:      q.AveragePrice,
			Volume:            q.Volume,
			DepositStatus:     q.DepositStatus,
			WithdrawalStatus:  q.WithdrawalStatus,
			Link:              q.Link,
		})
	}
	return out
}
