package application

import (
	"context"
	"time"

	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/metrics"
)

// SpreadQueryService 处理价差读操作
type SpreadQueryService struct {
	repo        domain.SpreadRepository
	maxPageSize int
	metrics     *metrics.Metrics
}

// NewSpreadQueryService 创建查询服务
func NewSpreadQueryService(repo domain.SpreadRepository, maxPageSize int, m *metrics.Metrics) *SpreadQueryService {
	if maxPageSize <= 0 {
		maxPageSize = domain.DefaultPageSize
	}
	return &SpreadQueryService{repo: repo, maxPageSize: maxPageSize, metrics: m}
}

// ListSpreads 校验参数后分页查询；参数错误在访问存储之前返回
func (q *SpreadQueryService) ListSpreads(ctx context.Context, query ListSpreadsQuery) (*SpreadListDTO, error) {
	filter, err := domain.NewFilter(query.toParams(), q.maxPageSize)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	page, err := q.repo.List(ctx, filter)
	if q.metrics != nil {
		q.metrics.ObserveSpreadList(time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	out := &SpreadListDTO{
		Spreads:    make([]*SpreadDTO, 0, len(page.Spreads)),
		TotalCount: page.TotalCount,
	}
	for _, s := range page.Spreads {
		out.Spreads = append(out.Spreads, ToSpreadDTO(s))
	}
	return out, nil
}

// GetSpread 不存在时返回 (nil, nil)
func (q *SpreadQueryService) GetSpread(ctx context.Context, id string) (*SpreadDTO, error) {
	s, err := q.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToSpreadDTO(s), nil
}

// ListExchanges 全部出现过的交易所名，小写去重
func (q *SpreadQueryService) ListExchanges(ctx context.Context) ([]string, error) {
	return q.repo.ListExchanges(ctx)
}
