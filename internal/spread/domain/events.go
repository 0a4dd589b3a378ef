package domain

import (
	"context"
	"time"
)

const (
	SpreadCreatedEventType = "spread.created"
	SpreadUpdatedEventType = "spread.updated"
	SpreadDeletedEventType = "spread.deleted"
)

// SpreadChangedEvent 价差变更事件，提交成功后发布
type SpreadChangedEvent struct {
	Type          string    `json:"type"`
	SpreadID      string    `json:"spread_id"`
	PairBase      string    `json:"pair_base,omitempty"`
	PairQuote     string    `json:"pair_quote,omitempty"`
	Network       *string   `json:"network,omitempty"`
	SpreadPercent float64   `json:"spread_percent,omitempty"`
	SpotCount     int       `json:"spot_count"`
	FuturesCount  int       `json:"futures_count"`
	OccurredOn    time.Time `json:"occurred_on"`
}

// NewSpreadChangedEvent 由聚合构造事件；删除事件只带 ID
func NewSpreadChangedEvent(eventType string, s *Spread, id string, now time.Time) SpreadChangedEvent {
	ev := SpreadChangedEvent{
		Type:       eventType,
		SpreadID:   id,
		OccurredOn: now.UTC(),
	}
	if s == nil {
		return ev
	}
	ev.SpreadID = s.ID
	ev.PairBase = s.Pair.Base
	ev.PairQuote = s.Pair.Quote
	ev.Network = s.Network
	ev.SpreadPercent = s.SpreadPercent
	if s.CEX != nil {
		ev.SpotCount = len(s.CEX.Spot)
		ev.FuturesCount = len(s.CEX.Futures)
	}
	return ev
}

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, event SpreadChangedEvent) error
}
