package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Config groups the kafka settings of the sync kit
type Config struct {
	// Enabled turns on the kafka publisher and the broadcast consumer
	Enabled bool `mapstructure:"enabled" toml:"enabled"`

	// MutationTopic receives replayed actions
	// default: "campus.mutations"
	MutationTopic string `mapstructure:"mutation_topic" toml:"mutation_topic"`

	// BroadcastTopic carries admin broadcasts
	// default: "campus.admin-broadcasts"
	BroadcastTopic string `mapstructure:"broadcast_topic" toml:"broadcast_topic"`

	Producer *ProducerConfig `mapstructure:"producer" toml:"producer"`
	Consumer *ConsumerConfig `mapstructure:"consumer" toml:"consumer"`
}

// DefaultConfig returns the default kafka configuration (disabled)
func DefaultConfig() *Config {
	return &Config{
		MutationTopic:  "campus.mutations",
		BroadcastTopic: "campus.admin-broadcasts",
		Producer:       DefaultProducerConfig(),
		Consumer:       DefaultConsumerConfig(),
	}
}

// MergeDefaults fills zero values with defaults. The consumer subscribes to
// BroadcastTopic and inherits the producer brokers when none are set.
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.MutationTopic == "" {
		c.MutationTopic = defaults.MutationTopic
	}
	if c.BroadcastTopic == "" {
		c.BroadcastTopic = defaults.BroadcastTopic
	}
	if c.Producer == nil {
		c.Producer = defaults.Producer
	} else {
		c.Producer = c.Producer.MergeDefaults()
	}
	if c.Consumer == nil {
		c.Consumer = defaults.Consumer
	} else {
		c.Consumer = c.Consumer.MergeDefaults()
	}
	if len(c.Consumer.Topics) == 0 {
		c.Consumer.Topics = []string{c.BroadcastTopic}
	}
	if len(c.Consumer.Brokers) == 0 {
		c.Consumer.Brokers = c.Producer.Brokers
	}
	return c
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MutationTopic == "" {
		return ErrInvalidConfig("mutation_topic is required")
	}
	if c.Producer == nil || c.Consumer == nil {
		return ErrInvalidConfig("producer and consumer sections are required")
	}
	if err := c.Producer.Validate(); err != nil {
		return err
	}
	return c.Consumer.Validate()
}

// ConsumerConfig is the configuration for the kafka consumer
type ConsumerConfig struct {
	Brokers []string `mapstructure:"brokers" toml:"brokers"`
	GroupID string   `mapstructure:"group_id" toml:"group_id"`
	Topics  []string `mapstructure:"topics" toml:"topics"`

	// handler attempts per message
	// default: 3
	MaxRetries int `mapstructure:"max_retries" toml:"max_retries"`

	// default: 1
	InstanceNum int `mapstructure:"instance_num" toml:"instance_num"`

	// "earliest" or "latest"
	// default: "latest"
	AutoOffsetReset string `mapstructure:"auto_offset_reset" toml:"auto_offset_reset"`

	// default: false, offsets are committed after a handled message
	EnableAutoCommit bool `mapstructure:"enable_auto_commit" toml:"enable_auto_commit"`

	// only used when EnableAutoCommit is true
	// default: 5s
	AutoCommitInterval time.Duration `mapstructure:"auto_commit_interval" toml:"auto_commit_interval"`

	// default: 30s
	SessionTimeout time.Duration `mapstructure:"session_timeout" toml:"session_timeout"`

	// default: 120s
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval" toml:"max_poll_interval"`

	// only PLAINTEXT is supported
	SecurityProtocol string `mapstructure:"security_protocol" toml:"security_protocol"`

	Debug bool `mapstructure:"debug" toml:"debug"`
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:            "campus-sync",
		MaxRetries:         3,
		InstanceNum:        1,
		AutoOffsetReset:    "latest",
		AutoCommitInterval: 5 * time.Second,
		SessionTimeout:     30 * time.Second,
		MaxPollInterval:    120 * time.Second,
		SecurityProtocol:   "PLAINTEXT",
	}
}

// MergeDefaults fills zero values with defaults
func (c *ConsumerConfig) MergeDefaults() *ConsumerConfig {
	defaults := DefaultConsumerConfig()
	if c.GroupID == "" {
		c.GroupID = defaults.GroupID
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InstanceNum == 0 {
		c.InstanceNum = defaults.InstanceNum
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = defaults.AutoOffsetReset
	}
	if c.AutoCommitInterval == 0 {
		c.AutoCommitInterval = defaults.AutoCommitInterval
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = defaults.SessionTimeout
	}
	if c.MaxPollInterval == 0 {
		c.MaxPollInterval = defaults.MaxPollInterval
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = defaults.SecurityProtocol
	}
	return c
}

func (c *ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if c.GroupID == "" {
		return ErrInvalidConfig("group_id is required")
	}
	if len(c.Topics) == 0 {
		return ErrInvalidConfig("topics are required")
	}
	if c.MaxRetries < 1 {
		return ErrInvalidConfig("max_retries must be at least 1")
	}
	if c.AutoOffsetReset != "earliest" && c.AutoOffsetReset != "latest" {
		return ErrInvalidConfig(
			fmt.Sprintf("invalid auto_offset_reset: %s, must be either 'earliest' or 'latest'", c.AutoOffsetReset),
		)
	}
	if c.EnableAutoCommit && c.AutoCommitInterval <= 0 {
		return ErrInvalidConfig("auto_commit_interval must be greater than 0 when enable_auto_commit is true")
	}
	if c.SessionTimeout <= 0 {
		return ErrInvalidConfig("session_timeout must be greater than 0")
	}
	if c.MaxPollInterval <= 0 {
		return ErrInvalidConfig("max_poll_interval must be greater than 0")
	}
	return nil
}

func (c *ConsumerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":    strings.Join(c.Brokers, ","),
		"group.id":             c.GroupID,
		"auto.offset.reset":    strings.ToLower(c.AutoOffsetReset),
		"enable.auto.commit":   c.EnableAutoCommit,
		"session.timeout.ms":   int(c.SessionTimeout.Milliseconds()),
		"max.poll.interval.ms": int(c.MaxPollInterval.Milliseconds()),
		"security.protocol":    c.SecurityProtocol,
	}
	if c.EnableAutoCommit {
		_ = configMap.SetKey("auto.commit.interval.ms", int(c.AutoCommitInterval.Milliseconds()))
	}
	if c.Debug {
		_ = configMap.SetKey("debug", "consumer,cgrp,topic,fetch")
	}
	return configMap
}

// ProducerConfig is the configuration for the kafka producer
type ProducerConfig struct {
	Brokers  []string `mapstructure:"brokers" toml:"brokers"`
	ClientID string   `mapstructure:"client_id" toml:"client_id"`

	// "all", "1" or "0". Mutations need "all".
	// default: "all"
	Acks string `mapstructure:"acks" toml:"acks"`

	// none, gzip, snappy, lz4, zstd
	// default: "none"
	Compression string `mapstructure:"compression" toml:"compression"`

	LingerMs int `mapstructure:"linger_ms" toml:"linger_ms"`

	// default: 100KB
	BatchSize int `mapstructure:"batch_size" toml:"batch_size"`

	SecurityProtocol string `mapstructure:"security_protocol" toml:"security_protocol"`

	// default: 3
	MaxRetries int `mapstructure:"max_retries" toml:"max_retries"`

	// DeliveryTimeout bounds how long Publish waits for the broker ack
	// default: 10s
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout" toml:"delivery_timeout"`
}

func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		ClientID:         "campus-sync",
		Acks:             "all",
		Compression:      "none",
		BatchSize:        100 * 1024,
		SecurityProtocol: "PLAINTEXT",
		MaxRetries:       3,
		DeliveryTimeout:  10 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (p *ProducerConfig) MergeDefaults() *ProducerConfig {
	defaults := DefaultProducerConfig()
	if p.ClientID == "" {
		p.ClientID = defaults.ClientID
	}
	if p.Acks == "" {
		p.Acks = defaults.Acks
	}
	if p.Compression == "" {
		p.Compression = defaults.Compression
	}
	if p.BatchSize == 0 {
		p.BatchSize = defaults.BatchSize
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = defaults.SecurityProtocol
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = defaults.MaxRetries
	}
	if p.DeliveryTimeout == 0 {
		p.DeliveryTimeout = defaults.DeliveryTimeout
	}
	return p
}

func (p *ProducerConfig) Validate() error {
	if len(p.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if p.DeliveryTimeout < 0 {
		return ErrInvalidConfig("delivery_timeout cannot be negative")
	}
	return nil
}

func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"compression.type":  strings.ToLower(p.Compression),
		"acks":              strings.ToLower(p.Acks),
		"linger.ms":         p.LingerMs,
		"batch.size":        p.BatchSize,
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}
	if p.ClientID != "" {
		_ = configMap.SetKey("client.id", p.ClientID)
	}
	return configMap
}
