package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

var ErrPublisherClosed = errors.New("publisher closed")

//go:generate mockgen -source=publisher.go -destination=mock/mock_publisher.go -package=mock_event

// Writer kafka.Writer 中 publisher 需要的方法
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type IOrderEventPublisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
	Close() error
}

type WriterConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	MaxAttempts  int
}

// NewKafkaWriter 同步寫入，RequireOne
func NewKafkaWriter(cfg WriterConfig) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            maxAttempts,
		AllowAutoTopicCreation: true,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Str("component", "kafka").Msgf(msg, args...)
		}),
	}
}

// KafkaOrderPublisher 同一訂單的事件使用相同 key，保證順序
type KafkaOrderPublisher struct {
	writer Writer
	closed atomic.Bool
}

func NewKafkaOrderPublisher(writer Writer) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{writer: writer}
}

func (p *KafkaOrderPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(evt.OrderID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", evt.Type, evt.OrderNumber, err)
	}
	return nil
}

func (p *KafkaOrderPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

// NopPublisher 沒有設定 kafka 時使用，只記錄 log
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	log.Debug().Str("type", string(evt.Type)).Str("order_number", evt.OrderNumber).Msg("order event dropped, kafka not configured")
	return nil
}

func (NopPublisher) Close() error {
	return nil
}

var (
	_ IOrderEventPublisher = (*KafkaOrderPublisher)(nil)
	_ IOrderEventPublisher = NopPublisher{}
)
