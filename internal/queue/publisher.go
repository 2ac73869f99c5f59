package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// Publisher sends domain events to a durable topic exchange.  The
// connection is opened lazily and re-dialled after any failure; failures are
// logged and never reach the caller.
type Publisher struct {
	url      string
	exchange string
	timeout  time.Duration
	log      logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for exchange on the broker at url.
func NewPublisher(url, exchange string, log logrus.FieldLogger) *Publisher {
	if url == "" {
		url = DefaultURL
	}
	return &Publisher{url: url, exchange: exchange, timeout: 5 * time.Second, log: log}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so the exchange survives broker restarts.
	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(
		name,    // name
		"topic", // kind
		true,    // durable
		false,   // autoDelete
		false,   // internal
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Publish implements service.EventSink.
func (p *Publisher) Publish(ctx context.Context, ev model.Event) {
	if err := p.publish(ctx, ev); err != nil {
		p.log.WithError(err).WithField("event", ev.Type).WithField("resource_id", ev.ResourceID).
			Warn("rabbitmq: publish failed")
	}
}

func (p *Publisher) publish(ctx context.Context, ev model.Event) error {
	key, msg, err := encode(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := ch.PublishWithContext(ctx,
		p.exchange, // exchange
		key,        // routing key = event type
		false,      // mandatory
		false,      // immediate
		msg,
	); err != nil {
		p.reset()
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
