package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/queue"
	"go.uber.org/zap"
)

// Header keys set on published mutations
const (
	HeaderActionType = "campus-action-type"
	HeaderRetryCount = "campus-retry-count"
)

// Publisher replays queued actions by publishing them to a mutation topic.
// Its Replay method satisfies queue.ReplayFunc.
type Publisher struct {
	logger   logger.Logger
	producer Producer
	topic    string
}

// NewPublisher returns a Publisher producing to topic
func NewPublisher(log logger.Logger, producer Producer, topic string) *Publisher {
	return &Publisher{logger: log, producer: producer, topic: topic}
}

// Replay publishes action as JSON keyed by its id. An acknowledged delivery
// counts as a successful replay; any produce error is returned so the queue
// records a failed attempt.
func (p *Publisher) Replay(ctx context.Context, action queue.PendingAction) (bool, error) {
	value, err := json.Marshal(action)
	if err != nil {
		return false, ErrEncode(err)
	}

	topic := p.topic
	msg := &Message{
		Key:   []byte(action.ID),
		Value: value,
		TopicPartition: TopicPartition{
			Topic:     &topic,
			Partition: PartitionAny,
		},
		Headers: []Header{
			{Key: HeaderActionType, Value: []byte(action.Type)},
			{Key: HeaderRetryCount, Value: []byte(strconv.Itoa(action.RetryCount))},
		},
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return false, err
	}

	p.logger.Debug("action published",
		zap.String("action_id", action.ID),
		zap.String("type", string(action.Type)),
		zap.String("topic", p.topic),
	)
	return true, nil
}
