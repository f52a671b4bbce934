package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const orderPlacedEventType = "order.placed"

// OrderPlacedEvent is the message written for every persisted order.
type OrderPlacedEvent struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	Lessons    []OrderedLesson `json:"lessons"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// OrderEventPublisher publica eventos de pedidos criados
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *Order) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOrderPublisher escreve eventos de pedido em um tópico Kafka
type KafkaOrderPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaOrderPublisher cria o writer para os brokers e tópico configurados
func NewKafkaOrderPublisher(cfg KafkaConfig, logger *zap.Logger) *KafkaOrderPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaOrderPublisher{writer: writer, logger: logger}
}

// PublishOrderPlaced serializa o pedido e propaga o trace context nos headers
func (p *KafkaOrderPublisher) PublishOrderPlaced(ctx context.Context, order *Order) error {
	payload, err := json.Marshal(OrderPlacedEvent{
		Type:       orderPlacedEventType,
		OrderID:    order.ID,
		Lessons:    order.Lessons,
		OccurredAt: order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	carrier := headerCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	msg := kafka.Message{
		Key:     []byte(order.ID),
		Value:   payload,
		Headers: carrier.headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write order event: %w", err)
	}

	p.logger.Debug("📤 Order event published", zap.String("order_id", order.ID))
	return nil
}

func (p *KafkaOrderPublisher) Close() error {
	return p.writer.Close()
}

// headerCarrier adapts kafka headers to the otel TextMapCarrier interface.
type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range c.headers {
		if h.Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

// noopOrderPublisher é usado quando nenhum broker está configurado
type noopOrderPublisher struct{}

func (noopOrderPublisher) PublishOrderPlaced(context.Context, *Order) error { return nil }
func (noopOrderPublisher) Close() error                                     { return nil }

// newOrderPublisher escolhe o publisher conforme a configuração
func newOrderPublisher(cfg KafkaConfig, logger *zap.Logger) OrderEventPublisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("Kafka brokers not configured, order events disabled")
		return noopOrderPublisher{}
	}
	return NewKafkaOrderPublisher(cfg, logger)
}
