// Package broker публикует доменные события в RabbitMQ (topic exchange).
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RoutingKeyPaymentStatusChanged = "payment.status_changed"
	RoutingKeyEnrollmentActivated  = "enrollment.activated"
	RoutingKeyBookingCreated       = "booking.created"
	RoutingKeyBookingUpdated       = "booking.updated"
)

var (
	// ErrConnect возвращается, когда не удалось подключиться к брокеру
	ErrConnect = errors.New("broker: failed to connect")

	// ErrPublish возвращается, когда не удалось опубликовать сообщение
	ErrPublish = errors.New("broker: failed to publish")
)

// Channel часть *amqp.Channel, нужная для публикации
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher публикует JSON сообщения в exchange
type Publisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
}

// NewPublisher подключается к RabbitMQ и объявляет topic exchange
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrConnect, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open channel: %v", ErrConnect, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: declare exchange %s: %v", ErrConnect, exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// NewPublisherWithChannel публикует через уже открытый канал
func NewPublisherWithChannel(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// PublishJSON сериализует v и публикует с ключом routingKey
func (p *Publisher) PublishJSON(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrPublish, routingKey, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, routingKey, err)
	}
	return nil
}

// Close закрывает канал и соединение
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher используется, когда брокер выключен
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
