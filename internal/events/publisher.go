package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

// Sequencer reserves the next sequence number for a partition.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements shipment.Publisher on a RabbitMQ topic exchange.
type Publisher struct {
	mu       sync.Mutex
	ch       channel
	seq      Sequencer
	producer string
	logger   *slog.Logger
	now      func() time.Time
}

type PublisherOptions struct {
	Producer string
	Logger   *slog.Logger
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch channel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) ShipmentPurchased(ctx context.Context, s shipment.Shipment) error {
	return p.publish(ctx, purchased, s)
}

func (p *Publisher) ShipmentVoided(ctx context.Context, s shipment.Shipment) error {
	return p.publish(ctx, voided, s)
}

func (p *Publisher) ShipmentDeleted(ctx context.Context, s shipment.Shipment) error {
	return p.publish(ctx, deleted, s)
}

func (p *Publisher) publish(ctx context.Context, k kind, s shipment.Shipment) error {
	occurredAt := p.now()
	key := partitionKey(s)

	seq, err := p.seq.NextSequence(ctx, key)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env, err := newEnvelope(k, key, seq, p.producer, middleware.GetReqID(ctx), newShipmentPayload(s, occurredAt), occurredAt)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", k.name, err)
	}

	if err := p.publishJSON(ctx, k.routingKey, body); err != nil {
		return fmt.Errorf("publish %s: %w", k.name, err)
	}
	p.logger.DebugContext(ctx, "event published",
		"event", k.name,
		"event_id", env.EventID,
		"partition_key", key,
		"sequence", seq,
	)
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newEnvelope(k kind, key string, seq int64, producer, correlationID string, payload ShipmentPayload, occurredAt time.Time) (EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s payload: %w", k.name, err)
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	env := EventEnvelope{
		EventName:     k.name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      producer,
		PartitionKey:  key,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        k.schema,
		Payload:       raw,
	}
	if err := env.Validate(k.name, 1); err != nil {
		return EventEnvelope{}, err
	}
	return env, nil
}

// Noop satisfies shipment.Publisher when no broker is configured.
type Noop struct{}

func (Noop) ShipmentPurchased(context.Context, shipment.Shipment) error { return nil }
func (Noop) ShipmentVoided(context.Context, shipment.Shipment) error    { return nil }
func (Noop) ShipmentDeleted(context.Context, shipment.Shipment) error   { return nil }
func (Noop) Close() error                                               { return nil }
