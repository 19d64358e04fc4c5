package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/models"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

var _ interfaces.IEventPublisher = (*KafkaPublisher)(nil)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// -----------------------------------------------------------------------------

// KafkaPublisher writes order events as JSON, keyed by order id so that every
// event of one order lands on the same partition.
type KafkaPublisher struct {
	writer  MessageWriter
	topic   string
	timeout time.Duration
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// kafka-go waits up to a second to fill a batch otherwise
const defaultBatchTimeout = 10 * time.Millisecond

func NewKafkaPublisher(cfg models.MEventsConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher needs at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher needs a topic")
	}

	timeout := time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	batchTimeout := time.Duration(cfg.BatchTimeoutMillis) * time.Millisecond
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           timeout,
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	log.Info("Kafka publisher configured (brokers: %v, topic: %s)", cfg.Brokers, cfg.Topic)
	return NewKafkaPublisherWithWriter(writer, cfg.Topic, timeout, log), nil
}

// NewKafkaPublisherWithWriter builds a publisher around an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter, topic string, timeout time.Duration, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		topic:   topic,
		timeout: timeout,
		logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (p *KafkaPublisher) Publish(ctx context.Context, event models.MOrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode order event")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.Order.ID, 10)),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s to %s", event.Type, p.topic)
	}

	p.logger.Debug("Published %s for order %d", event.Type, event.Order.ID)
	return nil
}

// -----------------------------------------------------------------------------

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
