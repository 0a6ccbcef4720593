package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const (
	clusterCheckAttempts = 3
	clusterCheckDelay    = 2 * time.Second
	clusterCheckTimeout  = 10 * time.Second
)

// validateKafkaCluster fetches cluster metadata to make sure the brokers
// answer before a producer or consumer is built
func validateKafkaCluster(log logger.Logger, brokers []string) error {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": int(clusterCheckTimeout.Milliseconds()),
	}

	var adminClient *kafka.AdminClient
	var err error
	for i := 0; i < clusterCheckAttempts; i++ {
		adminClient, err = kafka.NewAdminClient(configMap)
		if err == nil {
			break
		}
		if i < clusterCheckAttempts-1 {
			log.Warn("failed to create kafka admin client, retrying",
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("max_retries", clusterCheckAttempts),
			)
			time.Sleep(clusterCheckDelay)
		}
	}
	if err != nil {
		return ErrConnection(fmt.Errorf("create admin client after %d attempts: %w", clusterCheckAttempts, err))
	}
	defer adminClient.Close()

	if _, err := adminClient.GetMetadata(nil, false, int(clusterCheckTimeout.Milliseconds())); err != nil {
		return ErrConnection(err)
	}

	log.Info("kafka brokers reachable", zap.Strings("brokers", brokers))
	return nil
}
