package domain

import (
	"strings"
)

// DefaultPageSize 未指定 limit 时的页大小
const DefaultPageSize = 100

// SortBy 排序字段枚举
type SortBy string

const (
	SortTopSpread SortBy = "topSpread"
	SortLiquidity SortBy = "liquidity"
	SortFDV       SortBy = "sortFdv"
	SortDays      SortBy = "sortDays"
)

// Valid 是否为已知排序字段
func (s SortBy) Valid() bool {
	switch s {
	case SortTopSpread, SortLiquidity, SortFDV, SortDays:
		return true
	}
	return false
}

// OrderBy 排序方向
type OrderBy string

const (
	OrderAsc  OrderBy = "asc"
	OrderDesc OrderBy = "desc"
)

// Valid 是否为 asc 或 desc
func (o OrderBy) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// FilterParams 未校验的查询参数，nil 表示未提供
type FilterParams struct {
	Limit         *int
	Offset        *int
	Network       *string
	Exchanges     *string
	FromSpread    *float64
	ToSpread      *float64
	FromLiquidity *float64
	ToLiquidity   *float64
	FromFDV       *float64
	ToFDV         *float64
	SortBy        string
	OrderBy       string
}

// Filter 已校验的查询规格，仅在单次请求内有效
type Filter struct {
	Limit         int
	Offset        int
	Network       *string
	ExchangeList  *string
	FromSpread    *float64
	ToSpread      *float64
	FromLiquidity *float64
	ToLiquidity   *float64
	FromFDV       *float64
	ToFDV         *float64
	SortBy        SortBy
	OrderBy       OrderBy
}

// NewFilter 校验并构造 Filter。越界的 limit/offset 直接报错，不做截断；
// 范围上下界互相独立，from > to 只会得到空结果
func NewFilter(p FilterParams, maxLimit int) (*Filter, error) {
	if maxLimit <= 0 {
		maxLimit = DefaultPageSize
	}

	f := &Filter{
		Limit:         min(DefaultPageSize, maxLimit),
		Offset:        0,
		Network:       p.Network,
		ExchangeList:  p.Exchanges,
		FromSpread:    p.FromSpread,
		ToSpread:      p.ToSpread,
		FromLiquidity: p.FromLiquidity,
		ToLiquidity:   p.ToLiquidity,
		FromFDV:       p.FromFDV,
		ToFDV:         p.ToFDV,
		SortBy:        SortTopSpread,
		OrderBy:       OrderAsc,
	}

	if p.Limit != nil {
		if *p.Limit <= 0 || *p.Limit > maxLimit {
			return nil, invalid("limit", "must be between 1 and %d, got %d", maxLimit, *p.Limit)
		}
		f.Limit = *p.Limit
	}
	if p.Offset != nil {
		if *p.Offset < 0 {
			return nil, invalid("offset", "must be >= 0, got %d", *p.Offset)
		}
		f.Offset = *p.Offset
	}
	if p.SortBy != "" {
		sb := SortBy(p.SortBy)
		if !sb.Valid() {
			return nil, invalid("sort_by", "must be one of topSpread, liquidity, sortFdv, sortDays, got %q", p.SortBy)
		}
		f.SortBy = sb
	}
	if p.OrderBy != "" {
		ob := OrderBy(p.OrderBy)
		if !ob.Valid() {
			e := invalid("order_by", "must be asc or desc, got %q", p.OrderBy)
			e.Err = ErrInvalidSortDirection
			return nil, e
		}
		f.OrderBy = ob
	}

	return f, nil
}

// Exchanges 拆分逗号列表，去空白、转小写、丢弃空项；未提供时返回 nil
func (f *Filter) Exchanges() []string {
	if f.ExchangeList == nil {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(*f.ExchangeList, ",") {
		if name := NormalizeExchangeName(tok); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// NetworkValue 空字符串视为未提供
func (f *Filter) NetworkValue() (string, bool) {
	if f.Network == nil || *f.Network == "" {
		return "", false
	}
	return *f.Network, true
}
