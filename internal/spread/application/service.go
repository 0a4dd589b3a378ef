package application

import (
	"context"

	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/metrics"
)

// SpreadService 价差门面服务，整合 Command 和 Query。
type SpreadService struct {
	Command *SpreadCommandService
	Query   *SpreadQueryService
}

// NewSpreadService 构造函数。
func NewSpreadService(repo domain.SpreadRepository, publisher domain.EventPublisher, maxPageSize int, m *metrics.Metrics) *SpreadService {
	return &SpreadService{
		Command: NewSpreadCommandService(repo, publisher, m),
		Query:   NewSpreadQueryService(repo, maxPageSize, m),
	}
}

// --- Command (Writes) ---

func (s *SpreadService) CreateSpread(ctx context.Context, in *SpreadInput) (*SpreadDTO, error) {
	return s.Command.CreateSpread(ctx, in)
}

func (s *SpreadService) UpdateSpread(ctx context.Context, id string, in *SpreadInput) (*SpreadDTO, error) {
	return s.Command.UpdateSpread(ctx, id, in)
}

func (s *SpreadService) DeleteSpread(ctx context.Context, id string) (bool, error) {
	return s.Command.DeleteSpread(ctx, id)
}

// --- Query (Reads) ---

func (s *SpreadService) ListSpreads(ctx context.Context, q ListSpreadsQuery) (*SpreadListDTO, error) {
	return s.Query.ListSpreads(ctx, q)
}

func (s *SpreadService) GetSpread(ctx context.Context, id string) (*SpreadDTO, error) {
	return s.Query.GetSpread(ctx, id)
}

func (s *SpreadService) ListExchanges(ctx context.Context) ([]string, error) {
	return s.Query.ListExchanges(ctx)
}
