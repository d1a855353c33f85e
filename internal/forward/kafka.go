// Package forward ships drained log records to Kafka.
package forward

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/avoronov/ringlog/internal/logrec"
)

// Sink publishes log records to a Kafka topic.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

// NewSink creates a Kafka sink for the given brokers and topic.
func NewSink(brokers []string, topic string, log *zap.Logger) (*Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionZSTD
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create Kafka producer: %w", err)
	}

	log.Info("Kafka sink created",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic),
	)
	return NewSinkWithProducer(producer, topic, log), nil
}

// NewSinkWithProducer creates a Sink over an existing producer (for tests).
func NewSinkWithProducer(producer sarama.SyncProducer, topic string, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{producer: producer, topic: topic, log: log}
}

// Send publishes recs in order. Records are keyed by severity name so a
// consumer partitioned by key sees each level in capture order.
func (s *Sink) Send(recs []logrec.Record) error {
	if len(recs) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(recs))
	for _, rec := range recs {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record at position %d: %w", rec.Position, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(rec.LevelName),
			Value: sarama.ByteEncoder(value),
			Headers: []sarama.RecordHeader{
				{Key: []byte("level"), Value: []byte(strconv.FormatInt(int64(rec.Level), 10))},
				{Key: []byte("position"), Value: []byte(strconv.FormatUint(uint64(rec.Position), 10))},
			},
		})
	}

	if err := s.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("send %d records to Kafka: %w", len(msgs), err)
	}

	s.log.Debug("records forwarded",
		zap.String("topic", s.topic),
		zap.Int("count", len(msgs)),
	)
	return nil
}

// Close closes the underlying producer.
func (s *Sink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
