package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/notification"
	"github.com/campuscommunity/synckit/queue"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProducer struct {
	mu       sync.Mutex
	messages []*Message
	err      error
}

func (f *fakeProducer) Produce(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestConfig_MergeDefaultsAndValidate(t *testing.T) {
	cfg := (&Config{
		Enabled:  true,
		Producer: &ProducerConfig{Brokers: []string{"kafka:9092"}},
	}).MergeDefaults()

	if cfg.MutationTopic != "campus.mutations" {
		t.Errorf("MutationTopic = %q", cfg.MutationTopic)
	}
	if len(cfg.Consumer.Topics) != 1 || cfg.Consumer.Topics[0] != cfg.BroadcastTopic {
		t.Errorf("consumer topics = %v", cfg.Consumer.Topics)
	}
	if len(cfg.Consumer.Brokers) != 1 || cfg.Consumer.Brokers[0] != "kafka:9092" {
		t.Errorf("consumer brokers = %v", cfg.Consumer.Brokers)
	}
	if cfg.Producer.DeliveryTimeout != 10*time.Second {
		t.Errorf("DeliveryTimeout = %v", cfg.Producer.DeliveryTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name: "disabled needs nothing",
			cfg:  &Config{},
		},
		{
			name:    "enabled without brokers",
			cfg:     (&Config{Enabled: true}).MergeDefaults(),
			wantErr: "brokers are required",
		},
		{
			name: "bad offset reset",
			cfg: (&Config{
				Enabled:  true,
				Producer: &ProducerConfig{Brokers: []string{"k:9092"}},
				Consumer: &ConsumerConfig{AutoOffsetReset: "middle"},
			}).MergeDefaults(),
			wantErr: "auto_offset_reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildConfigMap(t *testing.T) {
	p := (&ProducerConfig{Brokers: []string{"a:1", "b:2"}}).MergeDefaults()
	pm := p.BuildConfigMap()
	if v, _ := pm.Get("bootstrap.servers", ""); v != "a:1,b:2" {
		t.Errorf("bootstrap.servers = %v", v)
	}
	if v, _ := pm.Get("client.id", ""); v != "campus-sync" {
		t.Errorf("client.id = %v", v)
	}

	c := (&ConsumerConfig{Brokers: []string{"a:1"}, EnableAutoCommit: true}).MergeDefaults()
	cm := c.BuildConfigMap()
	if v, _ := cm.Get("auto.commit.interval.ms", 0); v != 5000 {
		t.Errorf("auto.commit.interval.ms = %v", v)
	}
}

func TestPublisher_Replay(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(zap.NewNop(), producer, "campus.mutations")

	action := queue.PendingAction{
		ID:         "CREATE_NEWS_1700000000000",
		Type:       queue.ActionCreateNews,
		Timestamp:  1700000000000,
		Payload:    queue.CreateNewsPayload{Title: "Fest", Category: "event"},
		RetryCount: 2,
	}

	var replay queue.ReplayFunc = pub.Replay
	ok, err := replay(context.Background(), action)
	if !ok || err != nil {
		t.Fatalf("Replay() = %v, %v", ok, err)
	}

	if len(producer.messages) != 1 {
		t.Fatalf("produced %d messages", len(producer.messages))
	}
	msg := producer.messages[0]
	if *msg.TopicPartition.Topic != "campus.mutations" || string(msg.Key) != action.ID {
		t.Errorf("topic/key = %s/%s", *msg.TopicPartition.Topic, msg.Key)
	}
	if string(msg.GetHeader(HeaderActionType)) != "CREATE_NEWS" || string(msg.GetHeader(HeaderRetryCount)) != "2" {
		t.Errorf("headers = %+v", msg.Headers)
	}

	var decoded queue.PendingAction
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("published value does not decode: %v", err)
	}
	if decoded.Detail() != "Fest" {
		t.Errorf("decoded detail = %q", decoded.Detail())
	}
}

func TestPublisher_ReplayError(t *testing.T) {
	producer := &fakeProducer{err: ErrDelivery("campus.mutations", errors.New("broker down"))}
	pub := NewPublisher(zap.NewNop(), producer, "campus.mutations")

	ok, err := pub.Replay(context.Background(), queue.PendingAction{ID: "x", Type: queue.ActionSubscribeClub})
	if ok || err == nil {
		t.Errorf("Replay() = %v, %v, want false with error", ok, err)
	}
}

func TestBroadcastHandler(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	svc := notification.New(log, cache.NewNotificationCache(log, store.NewMemory()))
	handler := NewBroadcastHandler(log, svc)

	if err := handler(ctx, &Message{Value: []byte(`{"title":"Campus closed","message":"Snow day"}`)}); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	if err := handler(ctx, &Message{Value: []byte(`not json`)}); err != nil {
		t.Fatalf("malformed message should be acknowledged, got %v", err)
	}
	if err := handler(ctx, &Message{Value: []byte(`{"title":""}`)}); err != nil {
		t.Fatalf("invalid message should be acknowledged, got %v", err)
	}

	all := svc.GetAll(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d notifications, want 1", len(all))
	}
	if all[0].Type != model.NotificationAdmin || !strings.Contains(all[0].Title, "Campus closed") {
		t.Errorf("unexpected notification %+v", all[0])
	}
	if n := logs.FilterMessage("skipping malformed admin broadcast").Len(); n != 2 {
		t.Errorf("malformed warnings = %d, want 2", n)
	}
}

func TestRunHandler(t *testing.T) {
	calls := 0
	failTwice := func(context.Context, *Message) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}
	if err := runHandler(context.Background(), failTwice, &Message{}, 3); err != nil || calls != 3 {
		t.Errorf("runHandler() = %v after %d calls", err, calls)
	}

	calls = 0
	always := func(context.Context, *Message) error {
		calls++
		return errors.New("permanent")
	}
	if err := runHandler(context.Background(), always, &Message{}, 2); err == nil || calls != 2 {
		t.Errorf("runHandler() = %v after %d calls, want error after 2", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	if err := runHandler(ctx, always, &Message{}, 5); !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("runHandler() = %v after %d calls, want canceled after 1", err, calls)
	}
}
