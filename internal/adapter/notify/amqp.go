package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const exchangeName = "notifications"

var errSenderClosed = errors.New("sender is closed")

// amqpSession is one broker connection with its publishing channel.
type amqpSession interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
	// Closed fires, or is closed, once the connection is gone.
	Closed() <-chan *amqp.Error
	Close() error
}

type brokerSession struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan *amqp.Error
}

func dialBroker(url string) (amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &brokerSession{
		conn:   conn,
		ch:     ch,
		closed: conn.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (b *brokerSession) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	return b.ch.PublishWithContext(ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		msg)
}

func (b *brokerSession) Closed() <-chan *amqp.Error {
	return b.closed
}

func (b *brokerSession) Close() error {
	if b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}

// AMQPSender publishes notifications to a topic exchange, routed by template.
// A dropped connection is redialed on the next send.
type AMQPSender struct {
	dial    func() (amqpSession, error)
	logger  *zap.Logger
	mu      sync.Mutex
	session amqpSession
	stopped bool
}

func NewAMQPSender(url string, logger *zap.Logger) (*AMQPSender, error) {
	return newAMQPSender(func() (amqpSession, error) { return dialBroker(url) }, logger)
}

func newAMQPSender(dial func() (amqpSession, error), logger *zap.Logger) (*AMQPSender, error) {
	session, err := dial()
	if err != nil {
		return nil, err
	}
	return &AMQPSender{dial: dial, logger: logger.Named("amqp"), session: session}, nil
}

// live returns an open session. mu must be held.
func (s *AMQPSender) live() (amqpSession, error) {
	if s.stopped {
		return nil, errSenderClosed
	}
	if s.session != nil {
		select {
		case err := <-s.session.Closed():
			if err != nil {
				s.logger.Warn("amqp connection lost", zap.String("reason", err.Reason), zap.Int("code", err.Code))
			}
			_ = s.session.Close()
			s.session = nil
		default:
			return s.session, nil
		}
	}

	session, err := s.dial()
	if err != nil {
		return nil, err
	}
	s.logger.Info("amqp connection restored")
	s.session = session
	return session, nil
}

func (s *AMQPSender) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.live()
	if err != nil {
		return err
	}

	err = session.Publish(ctx, string(n.Template), amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			_ = session.Close()
			s.session = nil
		}
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}
