package domain

import "context"

// SpreadPage 一页价差及匹配总数
type SpreadPage struct {
	Spreads    []*Spread
	TotalCount int64
}

// SpreadRepository 价差聚合仓储，唯一允许修改 pairs/spreads/exchange_quotes 的组件。
// 未找到统一以 (nil, nil) 或 (false, nil) 表示，不作为错误返回。
type SpreadRepository interface {
	// List 按 Filter 计数、分页并加载完整聚合
	List(ctx context.Context, filter *Filter) (*SpreadPage, error)
	Get(ctx context.Context, id string) (*Spread, error)
	// Create 在一个事务内写入交易对、价差与报价，返回从存储重新加载的结果
	Create(ctx context.Context, spread *Spread) (*Spread, error)
	// Update 整体替换标量字段与全部报价
	Update(ctx context.Context, id string, spread *Spread) (*Spread, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ListExchanges 所有报价中出现过的交易所名称，小写、去重、排序
	ListExchanges(ctx context.Context) ([]string, error)
}
