package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/campuscommunity/synckit/logger"
)

type defaultConsumer struct {
	instances []*consumeInstance

	closed atomic.Bool
}

// NewConsumer creates a consumer group member with config.InstanceNum
// polling instances
func NewConsumer(log logger.Logger, config *ConsumerConfig) (Consumer, error) {
	if config == nil {
		config = DefaultConsumerConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := validateKafkaCluster(log, config.Brokers); err != nil {
		return nil, err
	}

	instances := make([]*consumeInstance, 0, config.InstanceNum)
	for i := 0; i < config.InstanceNum; i++ {
		name := fmt.Sprintf("%s-instance-%d", config.GroupID, i+1)
		instance, err := newConsumeInstance(name, config, log)
		if err != nil {
			for _, created := range instances {
				_ = created.Close()
			}
			return nil, err
		}
		instances = append(instances, instance)
	}

	return &defaultConsumer{instances: instances}, nil
}

// Start launches every instance's poll loop
func (c *defaultConsumer) Start(ctx context.Context, handler ConsumerMsgHandler) error {
	if len(c.instances) == 0 {
		return ErrNoConsumerInstances
	}
	for _, instance := range c.instances {
		instance.Start(ctx, handler)
	}
	return nil
}

// Close closes every instance
func (c *defaultConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, instance := range c.instances {
		if err := instance.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
