package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestSendMessageEncodesJSONWithHeaders(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "spread.events")

	err := p.SendMessage(context.Background(), "id-1", map[string]string{"a": "b"}, map[string]string{"event_type": "spread.created"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "id-1", string(msg.Key))
	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "b", body["a"])
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "spread.created", string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestSendMessageWrapsWriterError(t *testing.T) {
	cause := errors.New("broker unavailable")
	p := NewProducerWithWriter(&recordingWriter{err: cause}, "spread.events")

	err := p.SendMessage(context.Background(), "id-1", struct{}{}, nil)
	assert.ErrorIs(t, err, cause)
}

func TestSendMessageRejectsUnencodable(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{}, "spread.events")
	err := p.SendMessage(context.Background(), "id-1", make(chan int), nil)
	assert.Error(t, err)
}

func TestNewProducerValidatesConfig(t *testing.T) {
	_, err := NewProducer(KafkaConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewProducer(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}
