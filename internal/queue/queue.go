package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
)

const exchangeKind = "topic"

// Message is one domain event as it goes on the wire.
type Message struct {
	ID        string
	Type      string
	PoolID    string
	Body      []byte
	CreatedAt time.Time
}

// QueueManager publishes domain events to a RabbitMQ topic exchange with
// publisher confirms. The routing key is the event type.
type QueueManager struct {
	cfg *config.QueueConfig

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueueManager(cfg *config.QueueConfig) (*QueueManager, error) {
	qm := &QueueManager{cfg: cfg}
	if err := qm.connect(); err != nil {
		return nil, err
	}
	return qm, nil
}

func (qm *QueueManager) connect() error {
	conn, err := amqp.Dial(qm.cfg.AmqpURI())
	if err != nil {
		return fmt.Errorf("failed to connect to queue: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open queue channel: %w", err)
	}

	if err := ch.ExchangeDeclare(qm.cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", qm.cfg.Exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	qm.conn = conn
	qm.ch = ch
	return nil
}

// Publish sends msg and waits for the broker to confirm it.
func (qm *QueueManager) Publish(ctx context.Context, msg Message) error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.conn == nil || qm.conn.IsClosed() || qm.ch == nil || qm.ch.IsClosed() {
		log.Ctx(ctx).Warn().Msg("Queue connection lost, reconnecting")
		if err := qm.connect(); err != nil {
			metrics.RecordQueueSendError()
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, qm.cfg.PublishTimeout)
	defer cancel()

	confirmation, err := qm.ch.PublishWithDeferredConfirmWithContext(ctx, qm.cfg.Exchange, msg.Type, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Type:         msg.Type,
			Timestamp:    msg.CreatedAt,
			Headers:      amqp.Table{"pool_id": msg.PoolID},
			Body:         msg.Body,
		})
	if err != nil {
		metrics.RecordQueueSendError()
		return fmt.Errorf("failed to publish event %s: %w", msg.ID, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		metrics.RecordQueueSendError()
		return fmt.Errorf("failed to confirm event %s: %w", msg.ID, err)
	}
	if !acked {
		metrics.RecordQueueSendError()
		return fmt.Errorf("event %s was nacked by the broker", msg.ID)
	}
	return nil
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.ch != nil {
		if err := qm.ch.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close queue channel")
		}
	}
	if qm.conn != nil {
		if err := qm.conn.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close queue connection")
		}
	}
}
