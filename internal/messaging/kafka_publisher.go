// Package messaging mirrors plan events onto a Kafka topic.
package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	// DefaultTopic carries every plan event
	DefaultTopic = "installment-plan-events"

	defaultBufferSize   = 1024
	defaultWriteTimeout = 5 * time.Second
)

// ErrPublisherClosed is returned by Close when called twice
var ErrPublisherClosed = errors.New("messaging: publisher closed")

// messageWriter is the part of *kafkago.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher implements websocket.EventPublisher. Publish never blocks
// the caller; events are queued and written by a background goroutine.
// When the queue is full the event is dropped and logged.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	queue  chan kafkago.Message
	done   chan struct{}
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// Ensure KafkaPublisher implements EventPublisher
var _ websocket.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to topic on brokers.
// brokers is a comma separated host:port list.
func NewKafkaPublisher(brokers string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(splitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
	return newKafkaPublisher(writer, topic, defaultBufferSize)
}

func newKafkaPublisher(writer messageWriter, topic string, buffer int) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: writer,
		topic:  topic,
		queue:  make(chan kafkago.Message, buffer),
		done:   make(chan struct{}),
		logger: log.With().Str("component", "kafka_publisher").Str("topic", topic).Logger(),
	}
	go p.run()
	return p
}

// Publish implements websocket.EventPublisher
func (p *KafkaPublisher) Publish(customerID string, event websocket.Event) {
	value, err := event.ToJSON()
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", event.Type).Msg("Failed to serialize event")
		return
	}

	msg := kafkago.Message{
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "customer_id", Value: []byte(customerID)},
		},
		Time: event.Timestamp,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	select {
	case p.queue <- msg:
	default:
		p.logger.Warn().Str("event_type", event.Type).Str("plan_id", event.Key).Msg("Kafka queue full, dropping event")
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Error().Err(err).Str("plan_id", string(msg.Key)).Msg("Failed to write event to Kafka")
		}
		cancel()
	}
}

// Close flushes queued events and closes the writer
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
