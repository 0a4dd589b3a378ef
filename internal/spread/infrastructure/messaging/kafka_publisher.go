package messaging

import (
	"context"
	"fmt"

	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/logger"
	"github.com/wyfcoding/spreadhub/pkg/mq"
)

// EventTypeHeader 消息头中携带的事件类型
const EventTypeHeader = "event_type"

// kafkaPublisher 以价差 ID 为 key 写入 Kafka，同一价差的事件保持分区内有序
type kafkaPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaPublisher 创建基于 Kafka 的事件发布者
func NewKafkaPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event domain.SpreadChangedEvent) error {
	headers := map[string]string{EventTypeHeader: event.Type}
	if err := p.producer.SendMessage(ctx, event.SpreadID, event, headers); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// logPublisher 未配置 Kafka 时使用，仅记录日志
type logPublisher struct{}

// NewLogPublisher 创建只写日志的事件发布者
func NewLogPublisher() domain.EventPublisher {
	return logPublisher{}
}

func (logPublisher) Publish(ctx context.Context, event domain.SpreadChangedEvent) error {
	logger.Info(ctx, "spread event",
		"type", event.Type,
		"spread_id", event.SpreadID,
		"spot_count", event.SpotCount,
		"futures_count", event.FuturesCount,
	)
	return nil
}
