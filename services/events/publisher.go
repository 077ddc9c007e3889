package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/logger"
)

const (
	exchangeName = "mail.events"
	publishTTL   = 5 * time.Second
)

type rabbitPublisher struct {
	log logger.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// NewRabbitPublisher connects to the broker and declares the mail events
// topic exchange. Returns an error when the broker is unreachable; callers
// typically treat the publisher as optional.
func NewRabbitPublisher(url string, log logger.Logger) (interfaces.EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to rabbitmq")
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}
	if err := channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, errors.Wrap(err, "failed to declare exchange")
	}

	log.Infof("event publisher connected, exchange %s", exchangeName)
	return &rabbitPublisher{
		log:     log,
		conn:    conn,
		channel: channel,
	}, nil
}

func (p *rabbitPublisher) PublishMailEvent(ctx context.Context, event interfaces.MailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("event publisher is closed")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTTL)
	defer cancel()

	err = p.channel.PublishWithContext(
		publishCtx,
		exchangeName,
		event.EventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrap(err, "publish failed")
	}
	return nil
}

func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.channel.Close(); err != nil {
		p.log.Warnf("failed to close channel: %v", err)
	}
	return p.conn.Close()
}
