package application

import (
	"context"
	"time"

	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/logger"
	"github.com/wyfcoding/spreadhub/pkg/metrics"
)

// SpreadCommandService 处理价差写操作。
// 事件在仓储事务提交之后发布，发布失败只记日志，不回滚已提交的写入。
type SpreadCommandService struct {
	repo      domain.SpreadRepository
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewSpreadCommandService 创建命令服务；publisher 与 m 均可为 nil
func NewSpreadCommandService(repo domain.SpreadRepository, publisher domain.EventPublisher, m *metrics.Metrics) *SpreadCommandService {
	return &SpreadCommandService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// CreateSpread 创建价差及其报价
func (s *SpreadCommandService) CreateSpread(ctx context.Context, in *SpreadInput) (*SpreadDTO, error) {
	spread, err := in.toDomain()
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, spread)
	s.recordWrite("create", err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewSpreadChangedEvent(domain.SpreadCreatedEventType, created, created.ID, s.now()))
	return ToSpreadDTO(created), nil
}

// UpdateSpread 整体替换价差；不存在时返回 (nil, nil)
func (s *SpreadCommandService) UpdateSpread(ctx context.Context, id string, in *SpreadInput) (*SpreadDTO, error) {
	spread, err := in.toDomain()
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, spread)
	s.recordWrite("update", err)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}

	s.publish(ctx, domain.NewSpreadChangedEvent(domain.SpreadUpdatedEventType, updated, id, s.now()))
	return ToSpreadDTO(updated), nil
}

// DeleteSpread 删除价差，返回是否存在
func (s *SpreadCommandService) DeleteSpread(ctx context.Context, id string) (bool, error) {
	found, err := s.repo.Delete(ctx, id)
	s.recordWrite("delete", err)
	if err != nil || !found {
		return found, err
	}

	s.publish(ctx, domain.NewSpreadChangedEvent(domain.SpreadDeletedEventType, nil, id, s.now()))
	return true, nil
}

func (s *SpreadCommandService) publish(ctx context.Context, event domain.SpreadChangedEvent) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, event)
	if s.metrics != nil {
		s.metrics.RecordSpreadEvent(event.Type, err)
	}
	if err != nil {
		logger.Warn(ctx, "failed to publish spread event", "type", event.Type, "spread_id", event.SpreadID, "error", err)
	}
}

func (s *SpreadCommandService) recordWrite(op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordSpreadWrite(op, err)
	}
}
