package kafka

import "fmt"

var (
	// ErrNoConsumerInstances no consumer instances
	ErrNoConsumerInstances = fmt.Errorf("kafka: no consumer instances")
	// ErrProducerClosed the producer has been closed
	ErrProducerClosed = fmt.Errorf("kafka: producer closed")
)

// ErrInvalidConfig Kafka configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("kafka: invalid config: %s", msg)
}

// ErrConnection Kafka connection error
func ErrConnection(err error) error {
	return fmt.Errorf("kafka: connection failed: %w", err)
}

// ErrSubscribe subscribe error
func ErrSubscribe(topics []string, err error) error {
	return fmt.Errorf("kafka: subscribe to topics %v failed: %w", topics, err)
}

// ErrConsume consume message error
func ErrConsume(err error) error {
	return fmt.Errorf("kafka: consume message failed: %w", err)
}

// ErrCommit commit message error
func ErrCommit(err error) error {
	return fmt.Errorf("kafka: commit offsets failed: %w", err)
}

// ErrDelivery a produced message was rejected by the broker
func ErrDelivery(topic string, err error) error {
	return fmt.Errorf("kafka: delivery to %s failed: %w", topic, err)
}

// ErrEncode a value could not be encoded as a message
func ErrEncode(err error) error {
	return fmt.Errorf("kafka: encode message failed: %w", err)
}

// ErrDecode a consumed message could not be decoded
func ErrDecode(err error) error {
	return fmt.Errorf("kafka: decode message failed: %w", err)
}
