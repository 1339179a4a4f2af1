package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaMirror publishes notification events to a Kafka topic, keyed by order
// id so one session's events land on one partition in order. Fire-and-forget:
// publish failures are logged, never surfaced to the session.
type KafkaMirror struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewKafkaMirror(brokers []string, topic string, log *zap.SugaredLogger) *KafkaMirror {
	return &KafkaMirror{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log,
	}
}

func (m *KafkaMirror) Publish(e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		m.log.Errorw("kafka_marshal_failed", "order_id", e.OrderID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(e.OrderID, 10)),
		Value: value,
	})
	if err != nil {
		m.log.Warnw("kafka_publish_failed", "order_id", e.OrderID, "err", err)
	}
}

func (m *KafkaMirror) Close() error { return m.writer.Close() }
