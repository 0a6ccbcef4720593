package kafka

import (
	"context"
	"encoding/json"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/notification"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// Broadcast is an admin announcement published to the broadcast topic
type Broadcast struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
}

// DecodeBroadcast parses and validates a broadcast message value
func DecodeBroadcast(value []byte) (Broadcast, error) {
	var b Broadcast
	if err := json.Unmarshal(value, &b); err != nil {
		return Broadcast{}, ErrDecode(err)
	}
	if err := validate.Struct(b); err != nil {
		return Broadcast{}, ErrDecode(err)
	}
	return b, nil
}

// NewBroadcastHandler turns every broadcast message into an admin
// notification. Malformed messages are logged and acknowledged so they are
// not redelivered.
func NewBroadcastHandler(log logger.Logger, svc notification.Service) ConsumerMsgHandler {
	return func(ctx context.Context, msg *Message) error {
		b, err := DecodeBroadcast(msg.Value)
		if err != nil {
			log.Warn("skipping malformed admin broadcast",
				zap.String("topic", topicName(msg.TopicPartition.Topic)),
				zap.Int64("offset", int64(msg.TopicPartition.Offset)),
				zap.Error(err),
			)
			return nil
		}

		n := svc.CreateAdminNotification(ctx, b.Title, b.Message)
		log.Info("admin broadcast received",
			zap.String("notification_id", n.ID),
			zap.String("title", b.Title),
		)
		return nil
	}
}
