package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/routine"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type defaultProducer struct {
	logger logger.Logger
	config *ProducerConfig

	p *kafka.Producer

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
	closed   atomic.Bool
}

// NewProducer creates a kafka producer after checking the brokers are
// reachable
func NewProducer(log logger.Logger, config *ProducerConfig) (Producer, error) {
	if config == nil {
		config = DefaultProducerConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := validateKafkaCluster(log, config.Brokers); err != nil {
		return nil, err
	}

	configMap := config.BuildConfigMap()

	var producer *kafka.Producer
	var err error

	maxRetries := 3
	retryDelay := 3 * time.Second
	for i := 0; i < maxRetries; i++ {
		producer, err = kafka.NewProducer(configMap)
		if err == nil {
			break
		}
		if i < maxRetries-1 {
			log.Warn("failed to create kafka producer, retrying",
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
			)
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, ErrConnection(fmt.Errorf("create producer after %d attempts: %w", maxRetries, err))
	}

	kp := &defaultProducer{
		logger: log,
		config: config,
		p:      producer,
		done:   make(chan struct{}),
	}

	kp.wg.Add(1)
	routine.Go(log, func() {
		defer kp.wg.Done()
		kp.handleEvents()
	})

	log.Info("kafka producer initialized", zap.Strings("brokers", config.Brokers))
	return kp, nil
}

func (kp *defaultProducer) stop() {
	kp.stopOnce.Do(func() { close(kp.done) })
}

// handleEvents drains producer-level events. Per-message delivery reports
// go to the channel passed to Produce instead.
func (kp *defaultProducer) handleEvents() {
	for {
		select {
		case <-kp.done:
			return
		case e := <-kp.p.Events():
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					kp.logger.Error("kafka message not delivered",
						zap.Error(ev.TopicPartition.Error),
						zap.String("topic", topicName(ev.TopicPartition.Topic)),
					)
				}
			case kafka.Error:
				kp.logger.Error("kafka producer error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
				if ev.Code() == kafka.ErrAllBrokersDown {
					kp.logger.Error("all kafka brokers are down", zap.Error(ev))
					kp.stop()
					return
				}
			default:
				kp.logger.Debug("kafka producer event", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

// Produce sends msg and waits for the broker acknowledgement, bounded by
// ctx and ProducerConfig.DeliveryTimeout
func (kp *defaultProducer) Produce(ctx context.Context, msg *Message) error {
	if kp.closed.Load() {
		return ErrProducerClosed
	}
	if msg.TopicPartition.Topic == nil {
		return ErrInvalidConfig("topic is required")
	}
	if msg.Value == nil {
		return ErrInvalidConfig("value is required")
	}

	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:   msg.Key,
		Value: msg.Value,
	}
	if msg.TopicPartition.Partition != PartitionAny {
		message.TopicPartition.Partition = msg.TopicPartition.Partition
	}
	for _, header := range msg.Headers {
		message.Headers = append(message.Headers, kafka.Header{Key: header.Key, Value: header.Value})
	}

	delivery := make(chan kafka.Event, 1)
	if err := kp.p.Produce(message, delivery); err != nil {
		return ErrDelivery(*msg.TopicPartition.Topic, err)
	}

	if kp.config.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, kp.config.DeliveryTimeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return ErrDelivery(*msg.TopicPartition.Topic, ctx.Err())
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return ErrDelivery(*msg.TopicPartition.Topic, fmt.Errorf("unexpected event %T", e))
		}
		if m.TopicPartition.Error != nil {
			return ErrDelivery(*msg.TopicPartition.Topic, m.TopicPartition.Error)
		}
		kp.logger.Debug("kafka message delivered",
			zap.String("topic", topicName(m.TopicPartition.Topic)),
			zap.Int32("partition", m.TopicPartition.Partition),
			zap.Int64("offset", int64(m.TopicPartition.Offset)),
		)
		return nil
	}
}

// Close flushes outstanding messages and closes the producer
func (kp *defaultProducer) Close() error {
	if !kp.closed.CompareAndSwap(false, true) {
		return nil
	}
	kp.stop()
	kp.wg.Wait()

	if remaining := kp.p.Flush(10000); remaining > 0 {
		kp.logger.Warn("kafka producer closed with undelivered messages", zap.Int("remaining", remaining))
	}
	kp.p.Close()
	return nil
}

func topicName(topic *string) string {
	if topic == nil {
		return ""
	}
	return *topic
}
