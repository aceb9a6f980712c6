package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/opensource-finance/underwrite/internal/domain"
)

func waitFor(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timeout waiting for message")
	}
}

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		var receivedMsg *domain.Message
		var wg sync.WaitGroup
		wg.Add(1)

		_, err := bus.Subscribe(ctx, domain.TopicScoreRequested, func(ctx context.Context, msg *domain.Message) error {
			receivedMsg = msg
			wg.Done()
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := bus.Publish(ctx, domain.TopicScoreRequested, []byte("hello")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		waitFor(t, &wg, time.Second)

		if string(receivedMsg.Payload) != "hello" {
			t.Errorf("expected payload 'hello', got '%s'", string(receivedMsg.Payload))
		}
		if receivedMsg.Topic != domain.TopicScoreRequested {
			t.Errorf("expected topic '%s', got '%s'", domain.TopicScoreRequested, receivedMsg.Topic)
		}
		if receivedMsg.ID == "" {
			t.Error("expected message id")
		}
	})

	t.Run("TopicIsolation", func(t *testing.T) {
		var received1, received2 atomic.Int32
		var wg sync.WaitGroup
		wg.Add(1)

		bus.Subscribe(ctx, "isolation.a", func(ctx context.Context, msg *domain.Message) error {
			received1.Add(1)
			wg.Done()
			return nil
		})
		bus.Subscribe(ctx, "isolation.b", func(ctx context.Context, msg *domain.Message) error {
			received2.Add(1)
			return nil
		})

		bus.Publish(ctx, "isolation.a", []byte("msg1"))
		waitFor(t, &wg, time.Second)
		time.Sleep(20 * time.Millisecond)

		if received1.Load() != 1 {
			t.Errorf("topic a should receive 1 message, got %d", received1.Load())
		}
		if received2.Load() != 0 {
			t.Errorf("topic b should receive 0 messages, got %d", received2.Load())
		}
	})

	t.Run("RequiresTopic", func(t *testing.T) {
		if err := bus.Publish(ctx, "", []byte("data")); err == nil {
			t.Error("expected error for empty topic")
		}

		_, err := bus.Subscribe(ctx, "", func(ctx context.Context, msg *domain.Message) error {
			return nil
		})
		if err == nil {
			t.Error("expected error for empty topic")
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32
		var wg sync.WaitGroup
		wg.Add(1)

		sub, _ := bus.Subscribe(ctx, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			wg.Done()
			return nil
		})

		bus.Publish(ctx, "unsub.topic", []byte("msg1"))
		waitFor(t, &wg, time.Second)

		sub.Unsubscribe()

		bus.Publish(ctx, "unsub.topic", []byte("msg2"))
		time.Sleep(50 * time.Millisecond)

		if count.Load() != 1 {
			t.Errorf("expected 1 message after unsubscribe, got %d", count.Load())
		}
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var count1, count2 atomic.Int32
		var wg sync.WaitGroup
		wg.Add(2)

		bus.Subscribe(ctx, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count1.Add(1)
			wg.Done()
			return nil
		})
		bus.Subscribe(ctx, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count2.Add(1)
			wg.Done()
			return nil
		})

		bus.Publish(ctx, "multi.topic", []byte("broadcast"))
		waitFor(t, &wg, time.Second)

		if count1.Load() != 1 || count2.Load() != 1 {
			t.Errorf("expected both subscribers to receive, got %d and %d", count1.Load(), count2.Load())
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, domain.TopicScoreCompleted, func(ctx context.Context, msg *domain.Message) error {
			return nil
		})

		if sub.Topic() != domain.TopicScoreCompleted {
			t.Errorf("expected topic '%s', got '%s'", domain.TopicScoreCompleted, sub.Topic())
		}
	})
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)
	ctx := context.Background()

	bus.Subscribe(ctx, "close.topic", func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	if err := bus.Publish(ctx, "close.topic", []byte("data")); err == nil {
		t.Error("expected error after close")
	}

	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}

	if err := bus.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestNewBus(t *testing.T) {
	t.Run("ChannelType", func(t *testing.T) {
		cfg := domain.EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 50,
		}

		bus, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer bus.Close()

		if _, ok := bus.(*ChannelBus); !ok {
			t.Error("expected ChannelBus for channel type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.EventBusConfig{
			Type: "kafka",
		}

		if _, err := New(cfg); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()

	var received atomic.Int32
	const messageCount = 100

	var wg sync.WaitGroup
	wg.Add(messageCount)

	bus.Subscribe(ctx, "load.topic", func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		wg.Done()
		return nil
	})

	for i := 0; i < messageCount; i++ {
		bus.Publish(ctx, "load.topic", []byte("msg"))
	}

	waitFor(t, &wg, 5*time.Second)

	if received.Load() != messageCount {
		t.Errorf("expected %d messages, got %d", messageCount, received.Load())
	}
}

func TestChannelBusCarriesRequestID(t *testing.T) {
	bus := NewChannelBus(10)
	defer bus.Close()

	var gotMeta, gotCtx string
	var wg sync.WaitGroup
	wg.Add(1)

	bus.Subscribe(context.Background(), domain.TopicScoreRequested, func(ctx context.Context, msg *domain.Message) error {
		gotMeta = msg.Metadata[domain.MetaRequestID]
		gotCtx = domain.RequestIDFrom(ctx)
		wg.Done()
		return nil
	})

	ctx := domain.WithRequestID(context.Background(), "req-42")
	if err := bus.Publish(ctx, domain.TopicScoreRequested, []byte("{}")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	waitFor(t, &wg, time.Second)

	if gotMeta != "req-42" {
		t.Errorf("expected metadata request id 'req-42', got '%s'", gotMeta)
	}
	if gotCtx != "req-42" {
		t.Errorf("expected handler context request id 'req-42', got '%s'", gotCtx)
	}
}

func TestNATSQueueFor(t *testing.T) {
	if q := queueFor(domain.TopicScoreRequested); q != queueGroup {
		t.Errorf("score requests should share queue group %q, got %q", queueGroup, q)
	}
	if q := queueFor(domain.TopicScoreCompleted); q != "" {
		t.Errorf("score completions should fan out, got queue %q", q)
	}
}

func TestNATSEnvelope(t *testing.T) {
	t.Run("HeadersMirrorEnvelope", func(t *testing.T) {
		ctx := domain.WithRequestID(context.Background(), "req-7")
		msg := newMessage(ctx, domain.TopicScoreCompleted, []byte(`{"result":null}`))

		m, err := encodeMsg(msg)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		if m.Subject != domain.TopicScoreCompleted {
			t.Errorf("expected subject '%s', got '%s'", domain.TopicScoreCompleted, m.Subject)
		}
		if got := m.Header.Get(nats.MsgIdHdr); got != msg.ID {
			t.Errorf("expected dedupe id '%s', got '%s'", msg.ID, got)
		}
		if got := m.Header.Get(requestIDHeader); got != "req-7" {
			t.Errorf("expected request id header 'req-7', got '%s'", got)
		}

		decoded, err := decodeMsg(m)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded.ID != msg.ID || string(decoded.Payload) != `{"result":null}` {
			t.Errorf("decoded message mismatch: %+v", decoded)
		}
	})

	t.Run("FallsBackToHeaders", func(t *testing.T) {
		m := nats.NewMsg(domain.TopicScoreRequested)
		m.Data = []byte(`{"payload":"e30="}`)
		m.Header.Set(nats.MsgIdHdr, "msg-1")
		m.Header.Set(requestIDHeader, "req-9")

		decoded, err := decodeMsg(m)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded.ID != "msg-1" {
			t.Errorf("expected id from header, got '%s'", decoded.ID)
		}
		if decoded.Topic != domain.TopicScoreRequested {
			t.Errorf("expected topic from subject, got '%s'", decoded.Topic)
		}
		if decoded.Metadata[domain.MetaRequestID] != "req-9" {
			t.Errorf("expected request id from header, got '%s'", decoded.Metadata[domain.MetaRequestID])
		}
		if string(decoded.Payload) != "{}" {
			t.Errorf("expected payload '{}', got '%s'", decoded.Payload)
		}
	})

	t.Run("RejectsGarbage", func(t *testing.T) {
		m := nats.NewMsg(domain.TopicScoreRequested)
		m.Data = []byte("not json")
		if _, err := decodeMsg(m); err == nil {
			t.Error("expected decode error")
		}
	})
}
