// Package kafka connects the sync kit to Kafka. Queued actions can be
// published to a mutation topic instead of being sent over HTTP, and admin
// broadcasts consumed from a topic become local admin notifications.
package kafka

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Message is a transport-neutral copy of a kafka message
type Message struct {
	Value          []byte
	Key            []byte
	Timestamp      time.Time
	TopicPartition TopicPartition
	Headers        []Header
}

// GetHeader returns the first header value for k
func (m *Message) GetHeader(k string) []byte {
	for _, header := range m.Headers {
		if header.Key == k {
			return header.Value
		}
	}
	return nil
}

// PartitionAny lets the producer pick the partition
const PartitionAny = kafka.PartitionAny

type TopicPartition struct {
	Topic     *string
	Partition int32
	Offset    Offset
}

type Offset int64

type Header struct {
	Key   string
	Value []byte
}

// ConsumerMsgHandler handles a single consumed message. A returned error is
// retried up to ConsumerConfig.MaxRetries times before the message is
// skipped without commit.
type ConsumerMsgHandler func(ctx context.Context, msg *Message) error

// Consumer consumes the configured topics
type Consumer interface {
	Start(ctx context.Context, handler ConsumerMsgHandler) error
	Close() error
}

// Producer produces messages
type Producer interface {
	// Produce enqueues msg for delivery. A nil error means the message was
	// accepted by the local producer queue.
	Produce(ctx context.Context, msg *Message) error
	Close() error
}
