// Package broker publishes push notifications to RabbitMQ for the mobile
// push gateway to consume.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"marketplace_backend/platform/config"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PushMessage is the body published on the push exchange.
type PushMessage struct {
	UserID uuid.UUID         `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	SentAt time.Time         `json:"sentAt"`
}

// Publisher owns one AMQP connection and reopens its channel on demand.
type Publisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the durable fanout exchange.
func NewPublisher(cfg config.BrokerConfig) (*Publisher, error) {
	p := &Publisher{url: cfg.GetRabbitMQURL(), exchange: cfg.GetPushExchange()}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connectLocked() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return fmt.Errorf("dial rabbitmq: %w", err)
		}
		p.conn = conn
		p.ch = nil
	}
	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return fmt.Errorf("open channel: %w", err)
		}
		if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
		}
		p.ch = ch
	}
	return nil
}

// Publish sends msg as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, msg PushMessage) error {
	body, err := encode(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    msg.SentAt,
		Body:         body,
	})
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func encode(msg PushMessage) ([]byte, error) {
	if msg.UserID == uuid.Nil {
		return nil, fmt.Errorf("push message without recipient")
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	return json.Marshal(msg)
}
