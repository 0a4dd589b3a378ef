package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/mq"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaPublisher(mq.NewProducerWithWriter(w, "spread.events"))

	network := "ETH"
	s := &domain.Spread{
		ID:            "s-1",
		Pair:          domain.Pair{Base: "ETH", Quote: "USDT"},
		Network:       &network,
		SpreadPercent: 1.03,
		CEX:           &domain.CEXData{Spot: []domain.ExchangeQuote{{ExchangeName: "binance"}}, Futures: []domain.ExchangeQuote{}},
	}
	ev := domain.NewSpreadChangedEvent(domain.SpreadCreatedEventType, s, "", time.Unix(1700000000, 0))
	require.NoError(t, pub.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "s-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventTypeHeader, msg.Headers[0].Key)
	assert.Equal(t, domain.SpreadCreatedEventType, string(msg.Headers[0].Value))

	var decoded domain.SpreadChangedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ETH", decoded.PairBase)
	assert.Equal(t, 1, decoded.SpotCount)
	assert.Equal(t, 0, decoded.FuturesCount)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewKafkaPublisher(mq.NewProducerWithWriter(&recordingWriter{err: boom}, "spread.events"))

	err := pub.Publish(context.Background(), domain.NewSpreadChangedEvent(domain.SpreadDeletedEventType, nil, "s-2", time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), domain.SpreadDeletedEventType)
}

func TestLogPublisherNeverFails(t *testing.T) {
	err := NewLogPublisher().Publish(context.Background(), domain.NewSpreadChangedEvent(domain.SpreadUpdatedEventType, nil, "s-3", time.Now()))
	assert.NoError(t, err)
}
